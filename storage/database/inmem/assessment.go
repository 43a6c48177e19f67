package inmemdb

import (
	"context"
	"sort"

	"github.com/fnelms/backend/core/assessment"
)

type assessmentRepository struct {
	db *assessmentTables
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db.assessment}
}

// SeedInstance stores an instance and its snapshot/responses for tests.
func (repo *assessmentRepository) SeedInstance(inst assessment.Instance, snapshot assessment.TemplateSnapshot, responses []assessment.IndicatorResponse) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.instances[inst.ID] = &inst
	repo.db.snapshots[snapshot.ID] = &snapshot
	repo.db.responses[inst.ID] = responses
}

func (repo *assessmentRepository) GetInstance(ctx context.Context, instanceID string) (assessment.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inst, ok := repo.db.instances[instanceID]; ok {
		return *inst, nil
	}
	return assessment.Instance{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) GetSnapshot(ctx context.Context, snapshotID string) (assessment.TemplateSnapshot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if snapshot, ok := repo.db.snapshots[snapshotID]; ok {
		return *snapshot, nil
	}
	return assessment.TemplateSnapshot{}, assessment.ErrSnapshotNotFound
}

func (repo *assessmentRepository) QueryResponses(ctx context.Context, instanceID string) ([]assessment.IndicatorResponse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	responses := make([]assessment.IndicatorResponse, len(repo.db.responses[instanceID]))
	copy(responses, repo.db.responses[instanceID])
	return responses, nil
}

func (repo *assessmentRepository) GetResult(ctx context.Context, instanceID string) (assessment.InstanceSummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if summary, ok := repo.db.results[instanceID]; ok {
		return *summary, nil
	}
	return assessment.InstanceSummary{}, assessment.ErrResultNotFound
}

func (repo *assessmentRepository) UpsertResult(ctx context.Context, summary assessment.InstanceSummary) (assessment.InstanceSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.results[summary.InstanceID] = &summary
	return summary, nil
}

func (repo *assessmentRepository) QuerySchoolInstances(ctx context.Context, schoolID string, onlyCompleted bool) ([]assessment.Instance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	instances := make([]assessment.Instance, 0, len(repo.db.instances))
	for _, inst := range repo.db.instances {
		if inst.SchoolID != schoolID {
			continue
		}
		if onlyCompleted && inst.Status != assessment.StatusCompleted {
			continue
		}
		instances = append(instances, *inst)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })
	return instances, nil
}
