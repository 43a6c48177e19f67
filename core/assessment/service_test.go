package assessment

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// fakeRepo is a minimal in-memory Repository for service tests.
type fakeRepo struct {
	instances map[string]Instance
	snapshots map[string]TemplateSnapshot
	responses map[string][]IndicatorResponse
	results   map[string]InstanceSummary
	upserts   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		instances: make(map[string]Instance),
		snapshots: make(map[string]TemplateSnapshot),
		responses: make(map[string][]IndicatorResponse),
		results:   make(map[string]InstanceSummary),
	}
}

func (r *fakeRepo) GetInstance(_ context.Context, id string) (Instance, error) {
	if inst, ok := r.instances[id]; ok {
		return inst, nil
	}
	return Instance{}, ErrNotFound
}

func (r *fakeRepo) GetSnapshot(_ context.Context, id string) (TemplateSnapshot, error) {
	if snap, ok := r.snapshots[id]; ok {
		return snap, nil
	}
	return TemplateSnapshot{}, ErrSnapshotNotFound
}

func (r *fakeRepo) QueryResponses(_ context.Context, id string) ([]IndicatorResponse, error) {
	return r.responses[id], nil
}

func (r *fakeRepo) GetResult(_ context.Context, id string) (InstanceSummary, error) {
	if res, ok := r.results[id]; ok {
		return res, nil
	}
	return InstanceSummary{}, ErrResultNotFound
}

func (r *fakeRepo) UpsertResult(_ context.Context, summary InstanceSummary) (InstanceSummary, error) {
	r.results[summary.InstanceID] = summary
	r.upserts++
	return summary, nil
}

func (r *fakeRepo) QuerySchoolInstances(_ context.Context, schoolID string, onlyCompleted bool) ([]Instance, error) {
	var instances []Instance
	for _, inst := range r.instances {
		if inst.SchoolID != schoolID {
			continue
		}
		if onlyCompleted && inst.Status != StatusCompleted {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func seedInstance(repo *fakeRepo, instanceID, schoolID string, year int) {
	repo.instances[instanceID] = Instance{
		ID:                 instanceID,
		SchoolID:           schoolID,
		SnapshotID:         "snap1",
		TransformationYear: year,
		Status:             StatusCompleted,
	}
	repo.snapshots["snap1"] = TemplateSnapshot{
		ID:   "snap1",
		Area: "pedagogy",
		Modules: []Module{
			{ID: "m1", Indicators: []Indicator{{ID: "i1"}, {ID: "i2"}}},
		},
	}
	repo.responses[instanceID] = []IndicatorResponse{
		{InstanceID: instanceID, IndicatorID: "i1", RawValue: 4},
		{InstanceID: instanceID, IndicatorID: "i2", RawValue: 2},
	}
}

func TestServiceRecalculate(t *testing.T) {
	repo := newFakeRepo()
	seedInstance(repo, "inst1", "school1", 1)
	svc := NewService(repo)
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	summary, err := svc.Recalculate(ctx, "inst1")
	if err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}
	if summary.InstanceID != "inst1" {
		t.Errorf("InstanceID = %q, want inst1", summary.InstanceID)
	}
	if summary.TotalScore != 75 {
		t.Errorf("TotalScore = %v, want 75", summary.TotalScore)
	}
	if !summary.CalculatedAt.Equal(now) {
		t.Errorf("CalculatedAt = %v, want %v", summary.CalculatedAt, now)
	}

	// recalculating produces the identical summary, stale stored results do
	// not leak into the computation
	stale := summary
	stale.TotalScore = 1
	repo.results["inst1"] = stale

	again, err := svc.Recalculate(ctx, "inst1")
	if err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}
	if !reflect.DeepEqual(summary, again) {
		t.Errorf("Recalculate() not idempotent:\n%+v\n%+v", summary, again)
	}

	if _, err = svc.Recalculate(ctx, "nope"); errors.Cause(err) != ErrNotFound {
		t.Errorf("Recalculate() error = %v, want ErrNotFound", err)
	}
}

func TestServiceGapAnalysis(t *testing.T) {
	repo := newFakeRepo()
	seedInstance(repo, "inst1", "school1", 1)
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.GapAnalysis(ctx, "inst1"); errors.Cause(err) != ErrResultNotFound {
		t.Errorf("GapAnalysis() error = %v, want ErrResultNotFound", err)
	}

	if _, err := svc.Recalculate(ctx, "inst1"); err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}

	analysis, err := svc.GapAnalysis(ctx, "inst1")
	if err != nil {
		t.Fatalf("GapAnalysis() failed: %v", err)
	}
	// no expectations configured on the seeded snapshot
	if analysis.Stats.Total != 2 || analysis.Stats.NotConfigured != 2 {
		t.Errorf("Stats = %+v, want Total=2 NotConfigured=2", analysis.Stats)
	}
	if analysis.SampleSize != 0 {
		t.Errorf("SampleSize = %d, want 0", analysis.SampleSize)
	}
}

func TestServiceSchoolOverview(t *testing.T) {
	repo := newFakeRepo()
	seedInstance(repo, "inst1", "school1", 1)
	// completed instance without a stored result; skipped, not fatal
	repo.instances["inst2"] = Instance{
		ID: "inst2", SchoolID: "school1", SnapshotID: "snap1", TransformationYear: 1, Status: StatusCompleted,
	}
	// draft instance; never aggregated
	repo.instances["inst3"] = Instance{
		ID: "inst3", SchoolID: "school1", SnapshotID: "snap1", TransformationYear: 1, Status: StatusDraft,
	}
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Recalculate(ctx, "inst1"); err != nil {
		t.Fatalf("Recalculate() failed: %v", err)
	}

	overview, err := svc.SchoolOverview(ctx, "school1")
	if err != nil {
		t.Fatalf("SchoolOverview() failed: %v", err)
	}
	if overview.Overall.Count != 1 {
		t.Errorf("Overall.Count = %d, want 1", overview.Overall.Count)
	}
	if len(overview.ByArea) != 1 || overview.ByArea[0].Area != "pedagogy" {
		t.Errorf("ByArea = %+v, want single pedagogy entry", overview.ByArea)
	}
}

func TestServiceRecalculateSchool(t *testing.T) {
	repo := newFakeRepo()
	seedInstance(repo, "inst1", "school1", 1)
	seedInstance(repo, "inst2", "school1", 3)
	svc := NewService(repo)

	overview, err := svc.RecalculateSchool(context.Background(), "school1")
	if err != nil {
		t.Fatalf("RecalculateSchool() failed: %v", err)
	}
	if overview.Overall.Count != 2 {
		t.Errorf("Overall.Count = %d, want 2", overview.Overall.Count)
	}
	if repo.upserts != 2 {
		t.Errorf("upserts = %d, want 2", repo.upserts)
	}
}
