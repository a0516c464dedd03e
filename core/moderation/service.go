package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("report not found")
	ErrRateLimited       = errors.New("you have reached the limit of reports per hour, please try again later")
	ErrDuplicateReport   = errors.New("you have already reported this content")
	ErrUnsupportedTarget = errors.New("this content type does not support hiding")
	ErrInvalidTarget     = errors.New("target author not found or invalid")
	ErrAlreadyHandled    = errors.New("report has already been handled")
)

type (
	// Suspension is the suspend side effect resolved against a concrete account.
	Suspension struct {
		UserID int
		Until  time.Time
	}

	// SideEffect is what a moderator action does to the world besides
	// closing the report. ResolveReport applies it in the same transaction
	// as the report update.
	SideEffect struct {
		Hide    *Target
		Suspend *Suspension
	}

	Repository interface {
		// CreateReport inserts the report; the storage enforces the
		// (reporter, target) uniqueness constraint as the second line of
		// defense and surfaces a violation as ErrDuplicateReport.
		CreateReport(ctx context.Context, rep Report) (Report, error)
		ReportExists(ctx context.Context, reporterID int, target Target) (bool, error)
		// CountRecentReports counts the reporter's reports created after
		// `since`; the rolling rate-limit window.
		CountRecentReports(ctx context.Context, reporterID int, since time.Time) (int, error)
		GetReport(ctx context.Context, id int) (Report, error)
		QueryReportsByStatus(ctx context.Context, status Status) ([]Report, error)
		// ResolveReport writes the report's terminal state and applies the
		// side effect atomically; neither is observable without the other.
		ResolveReport(ctx context.Context, rep Report, effect SideEffect) error
	}

	// Notifier delivers moderation warnings; best-effort, never fails the action.
	Notifier interface {
		AuthorWarned(ctx context.Context, author user.User, about string)
	}

	Service struct {
		repo       Repository
		contentSvc *content.Service
		usrSvc     *user.Service
		notifier   Notifier

		rateLimit      int
		rateWindow     time.Duration
		suspensionDays int
	}
)

func NewService(repo Repository, contentSvc *content.Service, usrSvc *user.Service, notifier Notifier, conf *core.Config) *Service {
	return &Service{
		repo:           repo,
		contentSvc:     contentSvc,
		usrSvc:         usrSvc,
		notifier:       notifier,
		rateLimit:      conf.Moderation.ReportRateLimit,
		rateWindow:     conf.Moderation.ReportRateWindow,
		suspensionDays: conf.Moderation.DefaultSuspensionDays,
	}
}

// FileReport queues a report against any target. Policy rejections leave
// no trace: the rolling per-reporter rate limit rejects the submission
// outright, and a (reporter, target) pair may only ever report once.
func (svc *Service) FileReport(ctx context.Context, target Target, nr NewReport, reporter user.User) (Report, error) {
	if err := nr.Validate(); err != nil {
		return Report{}, err
	}
	if !target.Kind.Valid() {
		return Report{}, ErrInvalidTarget
	}
	// the target must exist
	if _, _, err := svc.resolveTarget(ctx, target); err != nil {
		return Report{}, err
	}

	since := time.Now().UTC().Add(-svc.rateWindow)
	count, err := svc.repo.CountRecentReports(ctx, reporter.ID, since)
	if err != nil {
		return Report{}, errors.Wrap(err, "counting recent reports")
	}
	if count >= svc.rateLimit {
		return Report{}, ErrRateLimited
	}

	// pre-check; the storage uniqueness constraint still backstops races
	exists, err := svc.repo.ReportExists(ctx, reporter.ID, target)
	if err != nil {
		return Report{}, errors.Wrap(err, "checking for duplicate report")
	}
	if exists {
		return Report{}, ErrDuplicateReport
	}

	now := time.Now().UTC()
	rep := Report{
		ReporterID:  reporter.ID,
		Target:      target,
		Reason:      Reason(nr.Reason),
		Description: nr.Description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	rep, err = svc.repo.CreateReport(ctx, rep)
	if err != nil {
		if errors.Cause(err) == ErrDuplicateReport {
			return Report{}, ErrDuplicateReport
		}
		return Report{}, errors.Wrap(err, "creating report")
	}
	return rep, nil
}

// Reports lists the moderation queue by status; moderators only.
func (svc *Service) Reports(ctx context.Context, status Status, actor user.User) ([]Report, error) {
	if !actor.Elevated() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryReportsByStatus(ctx, status)
}

func (svc *Service) Report(ctx context.Context, id int, actor user.User) (Report, error) {
	if !actor.Elevated() {
		return Report{}, core.ErrPermissionDenied
	}
	return svc.repo.GetReport(ctx, id)
}

// Act applies a moderator action to a pending report. Action mismatches
// (hide on an unhidable kind, suspend with no resolvable author) return
// before anything is written, leaving the report pending for another try.
func (svc *Service) Act(ctx context.Context, reportID int, in ActionInput, actor user.User) (Report, error) {
	if !actor.Elevated() {
		return Report{}, core.ErrPermissionDenied
	}
	if err := in.Validate(); err != nil {
		return Report{}, err
	}

	rep, err := svc.repo.GetReport(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	if rep.Status != StatusPending {
		return Report{}, ErrAlreadyHandled
	}

	var (
		effect     SideEffect
		warnAuthor *user.User
		warnAbout  string
	)
	switch Action(in.Action) {
	case ActionDismiss:
		rep.Status = StatusDismissed

	case ActionHide:
		if !rep.Target.Kind.SupportsRemoval() {
			return Report{}, ErrUnsupportedTarget
		}
		if _, _, err := svc.resolveTarget(ctx, rep.Target); err != nil {
			return Report{}, err
		}
		target := rep.Target
		effect.Hide = &target
		rep.Status = StatusResolved

	case ActionSuspend:
		author, _, err := svc.resolveAuthor(ctx, rep.Target)
		if err != nil {
			return Report{}, ErrInvalidTarget
		}
		days := in.Days
		if days == 0 {
			days = svc.suspensionDays
		}
		effect.Suspend = &Suspension{
			UserID: author.ID,
			Until:  time.Now().UTC().AddDate(0, 0, days),
		}
		rep.Status = StatusResolved

	case ActionWarn:
		author, about, err := svc.resolveAuthor(ctx, rep.Target)
		if err != nil {
			return Report{}, ErrInvalidTarget
		}
		warnAuthor = &author
		warnAbout = about
		rep.Status = StatusResolved
	}

	rep.ModeratorID = null.IntFrom(actor.ID)
	rep.ModeratorNote = in.Note
	rep.UpdatedAt = time.Now().UTC()
	if err := svc.repo.ResolveReport(ctx, rep, effect); err != nil {
		return Report{}, errors.Wrapf(err, "applying %s to report %d", in.Action, rep.ID)
	}
	if warnAuthor != nil {
		svc.notifier.AuthorWarned(ctx, *warnAuthor, warnAbout)
	}
	return rep, nil
}

// resolveTarget checks existence and returns a human label plus the
// author's user ID for the target.
func (svc *Service) resolveTarget(ctx context.Context, target Target) (label string, authorID int, err error) {
	if target.Kind == TargetUser {
		usr, err := svc.usrSvc.GetByID(ctx, target.ID)
		if err != nil {
			return "", 0, ErrInvalidTarget
		}
		return "their account", usr.ID, nil
	}
	kind, ok := target.Kind.ContentKind()
	if !ok {
		return "", 0, ErrInvalidTarget
	}
	meta, err := svc.contentSvc.Meta(ctx, kind, target.ID)
	if err != nil {
		return "", 0, ErrInvalidTarget
	}
	return fmt.Sprintf("their %s '%s'", target.Kind, meta.Title), meta.AuthorID, nil
}

func (svc *Service) resolveAuthor(ctx context.Context, target Target) (user.User, string, error) {
	label, authorID, err := svc.resolveTarget(ctx, target)
	if err != nil {
		return user.User{}, "", err
	}
	author, err := svc.usrSvc.GetByID(ctx, authorID)
	if err != nil {
		return user.User{}, "", ErrInvalidTarget
	}
	return author, label, nil
}
