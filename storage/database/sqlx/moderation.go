package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/moderation"
)

const pqUniqueViolation = "23505"

type reportRow struct {
	ID            int               `db:"id"`
	ReporterID    int               `db:"reporter_id"`
	TargetKind    string            `db:"target_kind"`
	TargetID      int               `db:"target_id"`
	Reason        moderation.Reason `db:"reason"`
	Description   string            `db:"description"`
	Status        moderation.Status `db:"status"`
	ModeratorID   null.Int          `db:"moderator_id"`
	ModeratorNote string            `db:"moderator_note"`
	CreatedAt     time.Time         `db:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at"`
}

func (r reportRow) toReport() moderation.Report {
	return moderation.Report{
		ID:         r.ID,
		ReporterID: r.ReporterID,
		Target: moderation.Target{
			Kind: moderation.TargetKind(r.TargetKind),
			ID:   r.TargetID,
		},
		Reason:        r.Reason,
		Description:   r.Description,
		Status:        r.Status,
		ModeratorID:   r.ModeratorID,
		ModeratorNote: r.ModeratorNote,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

const reportColumns = `id, reporter_id, target_kind, target_id, reason, description,
	status, moderator_id, moderator_note, created_at, updated_at`

type moderationRepository struct {
	db *sqlx.DB
}

var _ moderation.Repository = (*moderationRepository)(nil) // interface compliance check

func NewModerationRepository(db *sqlx.DB) moderation.Repository {
	return &moderationRepository{db: db}
}

func (repo *moderationRepository) CreateReport(ctx context.Context, rep moderation.Report) (moderation.Report, error) {
	q := `
		INSERT INTO report (reporter_id, target_kind, target_id, reason, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		rep.ReporterID, rep.Target.Kind, rep.Target.ID, rep.Reason, rep.Description, rep.Status,
		rep.CreatedAt, rep.UpdatedAt,
	).Scan(&rep.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return moderation.Report{}, moderation.ErrDuplicateReport
		}
		return moderation.Report{}, errors.Wrap(err, "inserting report")
	}
	return rep, nil
}

func (repo *moderationRepository) ReportExists(ctx context.Context, reporterID int, target moderation.Target) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM report WHERE reporter_id = $1 AND target_kind = $2 AND target_id = $3)`
	if err := repo.db.GetContext(ctx, &exists, q, reporterID, target.Kind, target.ID); err != nil {
		return false, errors.Wrap(err, "checking for existing report")
	}
	return exists, nil
}

func (repo *moderationRepository) CountRecentReports(ctx context.Context, reporterID int, since time.Time) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM report WHERE reporter_id = $1 AND created_at > $2`
	if err := repo.db.GetContext(ctx, &count, q, reporterID, since); err != nil {
		return 0, errors.Wrap(err, "counting recent reports")
	}
	return count, nil
}

func (repo *moderationRepository) GetReport(ctx context.Context, id int) (moderation.Report, error) {
	var row reportRow
	q := `SELECT ` + reportColumns + ` FROM report WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return moderation.Report{}, moderation.ErrNotFound
		}
		return moderation.Report{}, errors.Wrap(err, "getting report")
	}
	return row.toReport(), nil
}

func (repo *moderationRepository) QueryReportsByStatus(ctx context.Context, status moderation.Status) ([]moderation.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM report WHERE status = $1 ORDER BY created_at`
	var rows []reportRow
	if err := repo.db.SelectContext(ctx, &rows, q, status); err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	reports := make([]moderation.Report, 0, len(rows))
	for _, r := range rows {
		reports = append(reports, r.toReport())
	}
	return reports, nil
}

// ResolveReport writes the report's terminal status and applies the side
// effect in one transaction. The status update is guarded on pending so
// two moderators racing on the same report cannot both win.
func (repo *moderationRepository) ResolveReport(ctx context.Context, rep moderation.Report, effect moderation.SideEffect) error {
	return core.AtomicTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
			UPDATE report
			SET status = $2, moderator_id = $3, moderator_note = $4, updated_at = $5
			WHERE id = $1 AND status = $6`
		res, err := tx.ExecContext(ctx, q,
			rep.ID, rep.Status, rep.ModeratorID, rep.ModeratorNote, rep.UpdatedAt, moderation.StatusPending,
		)
		if err != nil {
			return errors.Wrap(err, "updating report")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return moderation.ErrNotFound
		}

		if effect.Hide != nil {
			kind, ok := effect.Hide.Kind.ContentKind()
			if !ok {
				return moderation.ErrUnsupportedTarget
			}
			q := fmt.Sprintf(`UPDATE %s SET lifecycle = $2 WHERE id = $1`, kindTables[kind])
			if _, err := tx.ExecContext(ctx, q, effect.Hide.ID, content.LifecycleRemoved); err != nil {
				return errors.Wrap(err, "hiding reported content")
			}
		}
		if effect.Suspend != nil {
			q := `UPDATE "user" SET is_active = FALSE, suspension_end = $2, updated_at = $3 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, q, effect.Suspend.UserID, effect.Suspend.Until, time.Now().UTC()); err != nil {
				return errors.Wrap(err, "suspending reported user")
			}
		}
		return nil
	})
}
