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

type PostgresReportsRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for reports table
var reportsColumns = []string{
	"id",
	"report_token",
	"workspace_id",
	"slack_user_id",
	"period",
	"period_start",
	"period_end",
	"communication_score",
	"previous_score",
	"score_change",
	"score_trend",
	"data",
	"created_at",
	"expires_at",
}

func NewPostgresReportsRepository(db *sqlx.DB, schema string) *PostgresReportsRepository {
	return &PostgresReportsRepository{db: db, schema: schema}
}

// CreateReport inserts a report, relying on the unique index on
// (workspace_id, slack_user_id, period, period_start) for at-most-once
// semantics. Returns false when a report for that window already exists - a
// retried or double-scheduled job is a no-op, not an error.
func (r *PostgresReportsRepository) CreateReport(
	ctx context.Context,
	report *models.Report,
) (bool, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(reportsColumns, ", ")

	query := fmt.Sprintf(`
		INSERT INTO %s.reports (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (workspace_id, slack_user_id, period, period_start) DO NOTHING`, r.schema, columnsStr)

	result, err := db.ExecContext(
		ctx,
		query,
		report.ID,
		report.ReportToken,
		report.WorkspaceID,
		report.SlackUserID,
		report.Period,
		report.PeriodStart,
		report.PeriodEnd,
		report.CommunicationScore,
		report.PreviousScore,
		report.ScoreChange,
		report.ScoreTrend,
		report.Data,
		report.CreatedAt,
		report.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// GetReportByToken looks up a report by its public access token. Expired
// reports are filtered out here so every reader treats them as not-found.
func (r *PostgresReportsRepository) GetReportByToken(
	ctx context.Context,
	token string,
	now time.Time,
) (mo.Option[*models.Report], error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(reportsColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.reports
		WHERE report_token = $1 AND expires_at > $2`, columnsStr, r.schema)

	report := &models.Report{}
	err := db.QueryRowxContext(ctx, query, token, now).StructScan(report)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return mo.None[*models.Report](), nil
		}
		return mo.None[*models.Report](), fmt.Errorf("failed to get report by token: %w", err)
	}

	return mo.Some(report), nil
}

// GetRecentReports returns the newest reports for one (user, period) pair
// starting before the given period start, newest first. The aggregator asks
// for the two most recent to compute trends.
func (r *PostgresReportsRepository) GetRecentReports(
	ctx context.Context,
	workspaceID, slackUserID string,
	period models.ReportPeriod,
	before time.Time,
	limit int,
) ([]*models.Report, error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(reportsColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.reports
		WHERE workspace_id = $1 AND slack_user_id = $2 AND period = $3 AND period_start < $4
		ORDER BY period_start DESC
		LIMIT $5`, columnsStr, r.schema)

	reports := []*models.Report{}
	if err := db.SelectContext(ctx, &reports, query, workspaceID, slackUserID, period, before, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent reports: %w", err)
	}

	return reports, nil
}

// GetLatestReportForUser returns the most recent unexpired report of the given
// period type, used by the /clarity report slash command.
func (r *PostgresReportsRepository) GetLatestReportForUser(
	ctx context.Context,
	workspaceID, slackUserID string,
	period models.ReportPeriod,
	now time.Time,
) (mo.Option[*models.Report], error) {
	db := dbtx.GetTransactional(ctx, r.db)

	columnsStr := strings.Join(reportsColumns, ", ")

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.reports
		WHERE workspace_id = $1 AND slack_user_id = $2 AND period = $3 AND expires_at > $4
		ORDER BY period_start DESC
		LIMIT 1`, columnsStr, r.schema)

	report := &models.Report{}
	err := db.QueryRowxContext(ctx, query, workspaceID, slackUserID, period, now).StructScan(report)
	if err != nil {
		if strings.Contains(err.Error(), "no rows") {
			return mo.None[*models.Report](), nil
		}
		return mo.None[*models.Report](), fmt.Errorf("failed to get latest report: %w", err)
	}

	return mo.Some(report), nil
}
