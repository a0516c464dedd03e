package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/moderation"
)

type moderationRepository struct {
	db *DB
}

var _ moderation.Repository = (*moderationRepository)(nil) // interface compliance check

func NewModerationRepository(db *DB) moderation.Repository {
	return &moderationRepository{db: db}
}

func (repo *moderationRepository) CreateReport(ctx context.Context, rep moderation.Report) (moderation.Report, error) {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	// (reporter, target) uniqueness, like the DB constraint
	for _, r := range repo.db.report.table {
		if r.ReporterID == rep.ReporterID && r.Target == rep.Target {
			return moderation.Report{}, moderation.ErrDuplicateReport
		}
	}

	repo.db.report.seq++
	rep.ID = repo.db.report.seq
	repo.db.report.table[rep.ID] = &rep
	return rep, nil
}

func (repo *moderationRepository) ReportExists(ctx context.Context, reporterID int, target moderation.Target) (bool, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	for _, rep := range repo.db.report.table {
		if rep.ReporterID == reporterID && rep.Target == target {
			return true, nil
		}
	}
	return false, nil
}

func (repo *moderationRepository) CountRecentReports(ctx context.Context, reporterID int, since time.Time) (int, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	var count int
	for _, rep := range repo.db.report.table {
		if rep.ReporterID == reporterID && rep.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (repo *moderationRepository) GetReport(ctx context.Context, id int) (moderation.Report, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	if rep, ok := repo.db.report.table[id]; ok {
		return *rep, nil
	}
	return moderation.Report{}, moderation.ErrNotFound
}

func (repo *moderationRepository) QueryReportsByStatus(ctx context.Context, status moderation.Status) ([]moderation.Report, error) {
	repo.db.report.RLock()
	defer repo.db.report.RUnlock()

	var reports []moderation.Report
	for _, rep := range repo.db.report.table {
		if rep.Status == status {
			reports = append(reports, *rep)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })
	return reports, nil
}

func (repo *moderationRepository) ResolveReport(ctx context.Context, rep moderation.Report, effect moderation.SideEffect) error {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	stored, ok := repo.db.report.table[rep.ID]
	if !ok || stored.Status != moderation.StatusPending {
		return moderation.ErrNotFound
	}

	if effect.Hide != nil {
		kind, ok := effect.Hide.Kind.ContentKind()
		if !ok {
			return moderation.ErrUnsupportedTarget
		}
		contentRepo := &contentRepository{db: repo.db}
		if err := contentRepo.SetLifecycle(ctx, kind, effect.Hide.ID, content.LifecycleRemoved); err != nil {
			return err
		}
	}
	if effect.Suspend != nil {
		repo.db.user.Lock()
		usr, ok := repo.db.user.table[effect.Suspend.UserID]
		if !ok {
			repo.db.user.Unlock()
			return moderation.ErrInvalidTarget
		}
		usr.IsActive = false
		usr.SuspensionEnd.SetValid(effect.Suspend.Until)
		repo.db.user.Unlock()
	}

	*stored = rep
	return nil
}
