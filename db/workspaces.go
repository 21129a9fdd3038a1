package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"

	dbtx "claritybackend/db/tx"
	"claritybackend/models"
)

type PostgresWorkspacesRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for workspaces table
var workspacesColumns = []string{
	"id",
	"slack_team_id",
	"slack_team_name",
	"slack_auth_token",
	"active",
	"subscription_tier",
	"subscription_status",
	"current_period_start",
	"current_period_end",
	"usage_auto_coaching",
	"usage_manual_rephrase",
	"created_at",
	"updated_at",
}

// usageColumns maps rate-limited features onto their counter columns. Feature
// names never reach SQL directly - only values from this map do.
var usageColumns = map[models.Feature]string{
	models.FeatureAutoCoaching:   "usage_auto_coaching",
	models.FeatureManualRephrase: "usage_manual_rephrase",
}

func NewPostgresWorkspacesRepository(db *sqlx.DB, schema string) *PostgresWorkspacesRepository {
	return &PostgresWorkspacesRepository{db: db, schema: schema}
}

func (r *PostgresWorkspacesRepository) CreateWorkspace(
	ctx context.Context,
	workspace *models.Workspace,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		INSERT INTO %s.workspaces (id, slack_team_id, slack_team_name, slack_auth_token, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		ON CONFLICT (slack_team_id) DO UPDATE
		SET slack_team_name = EXCLUDED.slack_team_name,
			slack_auth_token = EXCLUDED.slack_auth_token,
			active = TRUE,
			updated_at = NOW()`, r.schema)

	_, err := db.ExecContext(
		ctx,
		query,
		workspace.ID,
		workspace.SlackTeamID,
		workspace.SlackTeamName,
		workspace.SlackAuthToken,
	)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	return nil
}

func (r *PostgresWorkspacesRepository) GetWorkspaceByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Workspace], error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(workspacesColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.workspaces
		WHERE id = $1`, columnsStr, r.schema)

	workspace := &models.Workspace{}
	err := db.QueryRowxContext(ctx, query, id).StructScan(workspace)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return mo.None[*models.Workspace](), nil
		}
		return mo.None[*models.Workspace](), fmt.Errorf("failed to get workspace by ID: %w", err)
	}

	return mo.Some(workspace), nil
}

func (r *PostgresWorkspacesRepository) GetWorkspaceBySlackTeamID(
	ctx context.Context,
	slackTeamID string,
) (mo.Option[*models.Workspace], error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(workspacesColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.workspaces
		WHERE slack_team_id = $1`, columnsStr, r.schema)

	workspace := &models.Workspace{}
	err := db.QueryRowxContext(ctx, query, slackTeamID).StructScan(workspace)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return mo.None[*models.Workspace](), nil
		}
		return mo.None[*models.Workspace](), fmt.Errorf("failed to get workspace by slack team ID: %w", err)
	}

	return mo.Some(workspace), nil
}

func (r *PostgresWorkspacesRepository) GetActiveWorkspaces(
	ctx context.Context,
) ([]*models.Workspace, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(workspacesColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.workspaces
		WHERE active = TRUE
		ORDER BY created_at`, columnsStr, r.schema)

	workspaces := []*models.Workspace{}
	if err := db.SelectContext(ctx, &workspaces, query); err != nil {
		return nil, fmt.Errorf("failed to get active workspaces: %w", err)
	}

	return workspaces, nil
}

// InitSubscription sets the default subscription on a workspace that has none
// yet. The WHERE guard makes concurrent lazy-init calls safe: only the first
// writer wins, later calls see zero rows affected and re-read.
func (r *PostgresWorkspacesRepository) InitSubscription(
	ctx context.Context,
	workspaceID string,
	sub models.Subscription,
) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE %s.workspaces
		SET subscription_tier = $2,
			subscription_status = $3,
			current_period_start = $4,
			current_period_end = $5,
			usage_auto_coaching = 0,
			usage_manual_rephrase = 0,
			updated_at = NOW()
		WHERE id = $1 AND subscription_tier = ''`, r.schema)

	result, err := db.ExecContext(
		ctx,
		query,
		workspaceID,
		sub.Tier,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	)
	if err != nil {
		return false, fmt.Errorf("failed to init subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// IncrementUsage bumps a feature counter by one, atomically enforcing the
// ceiling in the same statement. Returns false when the counter already sits
// at the ceiling, so two racing callers can never push usage past the limit.
// Only rate-limited features have counters, so the ceiling is always positive.
func (r *PostgresWorkspacesRepository) IncrementUsage(
	ctx context.Context,
	workspaceID string,
	feature models.Feature,
	ceiling int,
) (bool, error) {
	column, ok := usageColumns[feature]
	if !ok {
		return false, fmt.Errorf("feature %s has no usage counter", feature)
	}
	if ceiling <= 0 {
		return false, fmt.Errorf("usage ceiling must be positive, got %d", ceiling)
	}

	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE %s.workspaces
		SET %s = %s + 1, updated_at = NOW()
		WHERE id = $1 AND %s < $2`, r.schema, column, column, column)

	result, err := db.ExecContext(ctx, query, workspaceID, ceiling)
	if err != nil {
		return false, fmt.Errorf("failed to increment usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ResetExpiredBillingPeriods zeroes usage counters and advances the billing
// period by one calendar month for every workspace whose period has ended.
// The period-end guard keeps it idempotent and safe to race with in-flight
// increments: both sides are single-statement row-locked updates, so a reset
// can never silently drop a concurrent increment.
func (r *PostgresWorkspacesRepository) ResetExpiredBillingPeriods(
	ctx context.Context,
	now time.Time,
) (int64, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE %s.workspaces
		SET usage_auto_coaching = 0,
			usage_manual_rephrase = 0,
			current_period_start = current_period_end,
			current_period_end = current_period_end + INTERVAL '1 month',
			updated_at = NOW()
		WHERE current_period_end IS NOT NULL AND current_period_end <= $1`, r.schema)

	result, err := db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to reset expired billing periods: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// UpdateSubscription applies a subscription state pushed by billing. The new
// period starts fresh, so usage counters reset with it.
func (r *PostgresWorkspacesRepository) UpdateSubscription(
	ctx context.Context,
	workspaceID string,
	sub models.Subscription,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE %s.workspaces
		SET subscription_tier = $2,
			subscription_status = $3,
			current_period_start = $4,
			current_period_end = $5,
			usage_auto_coaching = 0,
			usage_manual_rephrase = 0,
			updated_at = NOW()
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(
		ctx,
		query,
		workspaceID,
		sub.Tier,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("workspace not found")
	}

	return nil
}

func (r *PostgresWorkspacesRepository) DeactivateWorkspace(
	ctx context.Context,
	workspaceID string,
) error {
	db := dbtx.GetTransactional(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE %s.workspaces
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1`, r.schema)

	result, err := db.ExecContext(ctx, query, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to deactivate workspace: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("workspace not found")
	}

	return nil
}
