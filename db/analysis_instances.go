package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	dbtx "claritybackend/db/tx"
	"claritybackend/models"
)

type PostgresAnalysisInstancesRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for analysis_instances table
var analysisInstancesColumns = []string{
	"id",
	"workspace_id",
	"slack_user_id",
	"channel_id",
	"message_ts",
	"flag_ids",
	"target_ids",
	"original_text",
	"rephrased_text",
	"created_at",
}

func NewPostgresAnalysisInstancesRepository(db *sqlx.DB, schema string) *PostgresAnalysisInstancesRepository {
	return &PostgresAnalysisInstancesRepository{db: db, schema: schema}
}

func (r *PostgresAnalysisInstancesRepository) CreateAnalysisInstance(
	ctx context.Context,
	instance *models.AnalysisInstance,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(analysisInstancesColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.analysis_instances (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`, r.schema, columnsStr)

	_, err := db.ExecContext(
		ctx,
		query,
		instance.ID,
		instance.WorkspaceID,
		instance.SlackUserID,
		instance.ChannelID,
		instance.MessageTS,
		instance.FlagIDs,
		instance.TargetIDs,
		instance.OriginalText,
		instance.RephrasedText,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis instance: %w", err)
	}

	return nil
}

// GetInstancesInWindow returns all flagged-message records for one user in one
// workspace within [start, end), oldest first.
func (r *PostgresAnalysisInstancesRepository) GetInstancesInWindow(
	ctx context.Context,
	workspaceID, slackUserID string,
	start, end time.Time,
) ([]*models.AnalysisInstance, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(analysisInstancesColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.analysis_instances
		WHERE workspace_id = $1 AND slack_user_id = $2
			AND created_at >= $3 AND created_at < $4
		ORDER BY created_at`, columnsStr, r.schema)

	instances := []*models.AnalysisInstance{}
	if err := db.SelectContext(ctx, &instances, query, workspaceID, slackUserID, start, end); err != nil {
		return nil, fmt.Errorf("failed to get analysis instances in window: %w", err)
	}

	return instances, nil
}

// GetActiveUserIDsInWindow returns the distinct users with at least one
// flagged message in the window. The report scheduler iterates over these.
func (r *PostgresAnalysisInstancesRepository) GetActiveUserIDsInWindow(
	ctx context.Context,
	workspaceID string,
	start, end time.Time,
) ([]string, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT DISTINCT slack_user_id
		FROM %s.analysis_instances
		WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3`, r.schema)

	userIDs := []string{}
	if err := db.SelectContext(ctx, &userIDs, query, workspaceID, start, end); err != nil {
		return nil, fmt.Errorf("failed to get active user IDs in window: %w", err)
	}

	return userIDs, nil
}
