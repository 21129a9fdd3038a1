package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	dbtx "claritybackend/db/tx"
	"claritybackend/models"
)

type PostgresMessageActivityRepository struct {
	db     *sqlx.DB
	schema string
}

func NewPostgresMessageActivityRepository(db *sqlx.DB, schema string) *PostgresMessageActivityRepository {
	return &PostgresMessageActivityRepository{db: db, schema: schema}
}

// IncrementMessageCount bumps the analyzed-message counter for one user-day.
// Upsert keeps this a single atomic statement under concurrent analyzers.
func (r *PostgresMessageActivityRepository) IncrementMessageCount(
	ctx context.Context,
	workspaceID, slackUserID string,
	day time.Time,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		INSERT INTO %s.message_activity (workspace_id, slack_user_id, day, messages_analyzed)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (workspace_id, slack_user_id, day)
		DO UPDATE SET messages_analyzed = %s.message_activity.messages_analyzed + 1`,
		r.schema, r.schema)

	day = day.UTC().Truncate(24 * time.Hour)
	if _, err := db.ExecContext(ctx, query, workspaceID, slackUserID, day); err != nil {
		return fmt.Errorf("failed to increment message count: %w", err)
	}

	return nil
}

// GetActivityInWindow returns per-day analyzed-message counts for one user
// within [start, end), oldest day first.
func (r *PostgresMessageActivityRepository) GetActivityInWindow(
	ctx context.Context,
	workspaceID, slackUserID string,
	start, end time.Time,
) ([]*models.MessageActivity, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT workspace_id, slack_user_id, day, messages_analyzed
		FROM %s.message_activity
		WHERE workspace_id = $1 AND slack_user_id = $2
			AND day >= $3 AND day < $4
		ORDER BY day`, r.schema)

	activity := []*models.MessageActivity{}
	if err := db.SelectContext(ctx, &activity, query, workspaceID, slackUserID, start, end); err != nil {
		return nil, fmt.Errorf("failed to get message activity in window: %w", err)
	}

	return activity, nil
}
