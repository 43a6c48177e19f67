package assessment

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound                  = errors.New("assessment instance not found")
	ErrSnapshotNotFound          = errors.New("template snapshot not found")
	ErrResultNotFound            = errors.New("assessment result not found")
	ErrInvalidSnapshot           = errors.New("invalid template snapshot")
	ErrInvalidIndicatorValue     = errors.New("indicator value out of range")
	ErrInvalidTransformationYear = errors.New("transformation year out of range")
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		GetInstance(ctx context.Context, instanceID string) (Instance, error)
		GetSnapshot(ctx context.Context, snapshotID string) (TemplateSnapshot, error)
		// QueryResponses returns the raw responses recorded for an instance.
		QueryResponses(ctx context.Context, instanceID string) ([]IndicatorResponse, error)
		GetResult(ctx context.Context, instanceID string) (InstanceSummary, error)
		UpsertResult(ctx context.Context, summary InstanceSummary) (InstanceSummary, error)
		QuerySchoolInstances(ctx context.Context, schoolID string, onlyCompleted bool) ([]Instance, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Recalculate recomputes an instance's summary from its raw responses and the
// snapshot version tied to the instance, then stores it. Safe to call any
// number of times: the computation never reads a previously stored summary.
func (svc *Service) Recalculate(ctx context.Context, instanceID string) (InstanceSummary, error) {
	inst, err := svc.repo.GetInstance(ctx, instanceID)
	if err != nil {
		return InstanceSummary{}, err
	}
	snapshot, err := svc.repo.GetSnapshot(ctx, inst.SnapshotID)
	if err != nil {
		return InstanceSummary{}, err
	}
	responses, err := svc.repo.QueryResponses(ctx, inst.ID)
	if err != nil {
		return InstanceSummary{}, err
	}

	summary, err := Score(snapshot, inst.TransformationYear, responses)
	if err != nil {
		return InstanceSummary{}, errors.Wrapf(err, "scoring instance %s", inst.ID)
	}
	summary.InstanceID = inst.ID
	summary.CalculatedAt = nowFunc().UTC()
	return svc.repo.UpsertResult(ctx, summary)
}

// Results returns the stored summary for an instance.
func (svc *Service) Results(ctx context.Context, instanceID string) (InstanceSummary, error) {
	return svc.repo.GetResult(ctx, instanceID)
}

// GapAnalysis returns the gap analysis of the stored summary.
func (svc *Service) GapAnalysis(ctx context.Context, instanceID string) (GapAnalysis, error) {
	summary, err := svc.repo.GetResult(ctx, instanceID)
	if err != nil {
		return GapAnalysis{}, err
	}
	return summary.GapAnalysis, nil
}

// SchoolOverview aggregates the stored results of a school's completed
// instances. Instances without a stored result are skipped.
func (svc *Service) SchoolOverview(ctx context.Context, schoolID string) (SchoolOverview, error) {
	instances, err := svc.repo.QuerySchoolInstances(ctx, schoolID, true /* onlyCompleted */)
	if err != nil {
		return SchoolOverview{}, err
	}

	summaries := make([]InstanceSummary, 0, len(instances))
	for _, inst := range instances {
		summary, err := svc.repo.GetResult(ctx, inst.ID)
		if err != nil {
			if errors.Cause(err) == ErrResultNotFound {
				continue
			}
			return SchoolOverview{}, err
		}
		summaries = append(summaries, summary)
	}
	return AggregateSchool(summaries), nil
}

// RecalculateSchool recomputes and stores summaries for all of a school's
// completed instances, returning the refreshed overview.
func (svc *Service) RecalculateSchool(ctx context.Context, schoolID string) (SchoolOverview, error) {
	instances, err := svc.repo.QuerySchoolInstances(ctx, schoolID, true /* onlyCompleted */)
	if err != nil {
		return SchoolOverview{}, err
	}

	summaries := make([]InstanceSummary, 0, len(instances))
	for _, inst := range instances {
		summary, err := svc.Recalculate(ctx, inst.ID)
		if err != nil {
			return SchoolOverview{}, err
		}
		summaries = append(summaries, summary)
	}
	return AggregateSchool(summaries), nil
}
