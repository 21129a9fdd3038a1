package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	dbtx "claritybackend/db/tx"
	"claritybackend/models"
)

type PostgresCoachingFlagsRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for coaching_flags table
var coachingFlagsColumns = []string{
	"id",
	"workspace_id",
	"slack_user_id",
	"position",
	"name",
	"description",
	"enabled",
	"created_at",
	"updated_at",
}

func NewPostgresCoachingFlagsRepository(db *sqlx.DB, schema string) *PostgresCoachingFlagsRepository {
	return &PostgresCoachingFlagsRepository{db: db, schema: schema}
}

func (r *PostgresCoachingFlagsRepository) CreateCoachingFlag(
	ctx context.Context,
	flag *models.CoachingFlag,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(coachingFlagsColumns, ", ")

	// Position is assigned in the same statement: one past the current end of
	// the user's list. Flag ids elsewhere are 1-based positions in this list,
	// so the assigned position is returned to the caller.
	query := fmt.Sprintf(`
		INSERT INTO %s.coaching_flags (%s)
		SELECT $1, $2, $3,
			COALESCE(MAX(position), 0) + 1,
			$4, $5, $6, NOW(), NOW()
		FROM %s.coaching_flags
		WHERE workspace_id = $2 AND slack_user_id = $3
		RETURNING position`, r.schema, columnsStr, r.schema)

	err := db.QueryRowxContext(
		ctx,
		query,
		flag.ID,
		flag.WorkspaceID,
		flag.SlackUserID,
		flag.Name,
		flag.Description,
		flag.Enabled,
	).Scan(&flag.Position)
	if err != nil {
		return fmt.Errorf("failed to create coaching flag: %w", err)
	}

	return nil
}

// GetCoachingFlags returns a user's custom flags in position order.
func (r *PostgresCoachingFlagsRepository) GetCoachingFlags(
	ctx context.Context,
	workspaceID, slackUserID string,
) ([]*models.CoachingFlag, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(coachingFlagsColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.coaching_flags
		WHERE workspace_id = $1 AND slack_user_id = $2
		ORDER BY position`, columnsStr, r.schema)

	flags := []*models.CoachingFlag{}
	if err := db.SelectContext(ctx, &flags, query, workspaceID, slackUserID); err != nil {
		return nil, fmt.Errorf("failed to get coaching flags: %w", err)
	}

	return flags, nil
}

func (r *PostgresCoachingFlagsRepository) GetCoachingFlagByPosition(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
) (mo.Option[*models.CoachingFlag], error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(coachingFlagsColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.coaching_flags
		WHERE workspace_id = $1 AND slack_user_id = $2 AND position = $3`, columnsStr, r.schema)

	flag := &models.CoachingFlag{}
	err := db.QueryRowxContext(ctx, query, workspaceID, slackUserID, position).StructScan(flag)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return mo.None[*models.CoachingFlag](), nil
		}
		return mo.None[*models.CoachingFlag](), fmt.Errorf("failed to get coaching flag by position: %w", err)
	}

	return mo.Some(flag), nil
}

func (r *PostgresCoachingFlagsRepository) CountCoachingFlags(
	ctx context.Context,
	workspaceID, slackUserID string,
) (int, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s.coaching_flags
		WHERE workspace_id = $1 AND slack_user_id = $2`, r.schema)

	var count int
	if err := db.GetContext(ctx, &count, query, workspaceID, slackUserID); err != nil {
		return 0, fmt.Errorf("failed to count coaching flags: %w", err)
	}

	return count, nil
}

func (r *PostgresCoachingFlagsRepository) SetCoachingFlagEnabled(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
	enabled bool,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE %s.coaching_flags
		SET enabled = $4, updated_at = NOW()
		WHERE workspace_id = $1 AND slack_user_id = $2 AND position = $3`, r.schema)

	result, err := db.ExecContext(ctx, query, workspaceID, slackUserID, position, enabled)
	if err != nil {
		return fmt.Errorf("failed to update coaching flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("coaching flag not found")
	}

	return nil
}

// DeleteCoachingFlag removes a flag and closes the position gap so positions
// stay gap-free 1..N. Callers run this inside a transaction.
func (r *PostgresCoachingFlagsRepository) DeleteCoachingFlag(
	ctx context.Context,
	workspaceID, slackUserID string,
	position int,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s.coaching_flags
		WHERE workspace_id = $1 AND slack_user_id = $2 AND position = $3`, r.schema)

	result, err := db.ExecContext(ctx, deleteQuery, workspaceID, slackUserID, position)
	if err != nil {
		return fmt.Errorf("failed to delete coaching flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("coaching flag not found")
	}

	shiftQuery := fmt.Sprintf(`
		UPDATE %s.coaching_flags
		SET position = position - 1, updated_at = NOW()
		WHERE workspace_id = $1 AND slack_user_id = $2 AND position > $3`, r.schema)

	if _, err := db.ExecContext(ctx, shiftQuery, workspaceID, slackUserID, position); err != nil {
		return fmt.Errorf("failed to compact coaching flag positions: %w", err)
	}

	return nil
}
