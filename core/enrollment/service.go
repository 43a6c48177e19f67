package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/fnelms/backend/core"
)

var (
	// errors
	ErrNotFound       = errors.New("enrollment not found")
	ErrCourseNotFound = errors.New("course not found")
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		// GetCourseStructure returns the lesson -> block count map of a course.
		GetCourseStructure(ctx context.Context, courseID string) (CourseStructure, error)
		QueryProgressEvents(ctx context.Context, userID, courseID string) ([]ProgressEvent, error)
		GetEnrollment(ctx context.Context, userID, courseID string) (EnrollmentSummary, error)
		// QueryCourseUserIDs returns every user with an enrollment row or at
		// least one progress event for the course, without duplicates.
		QueryCourseUserIDs(ctx context.Context, courseID string) ([]string, error)
		UpsertEnrollment(ctx context.Context, summary EnrollmentSummary) (EnrollmentSummary, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// ReconcileUser recomputes one user's progress through a course from the raw
// event log and reports any drift against the cached enrollment row. Detection
// only; nothing is written.
func (svc *Service) ReconcileUser(ctx context.Context, userID, courseID string) (Finding, error) {
	structure, err := svc.repo.GetCourseStructure(ctx, courseID)
	if err != nil {
		return Finding{}, err
	}
	events, err := svc.repo.QueryProgressEvents(ctx, userID, courseID)
	if err != nil {
		return Finding{}, err
	}

	proj := Project(events, structure)
	proj.Summary.UserID = userID

	finding := Finding{Computed: proj.Summary}
	cached, err := svc.repo.GetEnrollment(ctx, userID, courseID)
	switch errors.Cause(err) {
	case nil:
		finding.Cached = &cached
	case ErrNotFound:
		// no cached row; DetectDrift reports it
	default:
		return Finding{}, err
	}
	finding.Mismatch = proj.DetectDrift(finding.Cached)
	return finding, nil
}

// ReconcileCourse runs detection for every user known to the course.
func (svc *Service) ReconcileCourse(ctx context.Context, courseID string) ([]Finding, error) {
	userIDs, err := svc.repo.QueryCourseUserIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}

	findings := make([]Finding, 0, len(userIDs))
	for _, userID := range userIDs {
		finding, err := svc.ReconcileUser(ctx, userID, courseID)
		if err != nil {
			return nil, errors.Wrapf(err, "reconciling user %s", userID)
		}
		findings = append(findings, finding)
	}
	return findings, nil
}

// Apply persists the recomputed summary, overwriting the drifted cache row.
// Idempotent: applying the same finding twice leaves the same row.
func (svc *Service) Apply(ctx context.Context, finding Finding) (EnrollmentSummary, error) {
	summary := finding.Computed
	if finding.Cached != nil {
		summary.ID = finding.Cached.ID
	}
	summary.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpsertEnrollment(ctx, summary)
}

// ApplyAll corrects every finding that reported a mismatch and returns the
// number of rows written.
func (svc *Service) ApplyAll(ctx context.Context, findings []Finding) (int, error) {
	var applied int
	for _, finding := range findings {
		if finding.Mismatch == nil {
			continue
		}
		if _, err := svc.Apply(ctx, finding); err != nil {
			return applied, errors.Wrapf(err, "applying user %s", finding.Computed.UserID)
		}
		applied++
	}
	return applied, nil
}

// driftReportData feeds the drift_report email templates.
type driftReportData struct {
	CourseID   string
	RunAt      time.Time
	DryRun     bool
	Total      int
	Mismatched int
	Findings   []Finding
}

// SendDriftReport emails a reconciliation report to the given recipients, or
// to the configured admin address when none are given.
func (svc *Service) SendDriftReport(courseID string, findings []Finding, dryRun bool, to ...mail.Address) {
	if len(to) == 0 {
		to = []mail.Address{svc.conf.AdminEmail}
	}

	var mismatched int
	for _, finding := range findings {
		if finding.Mismatch != nil {
			mismatched++
		}
	}

	listed := findings
	if limit := svc.conf.Reconcile.ReportLimit; limit > 0 && len(listed) > limit {
		listed = listed[:limit]
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("Enrollment drift report: course %s", courseID),
		TemplateName: "drift_report",
		TemplateData: driftReportData{
			CourseID:   courseID,
			RunAt:      nowFunc().UTC(),
			DryRun:     dryRun,
			Total:      len(findings),
			Mismatched: mismatched,
			Findings:   listed,
		},
	})
}
