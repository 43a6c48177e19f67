package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/fnelms/backend/core"
	"github.com/fnelms/backend/core/assessment"
)

type assessmentRepository struct {
	db core.DBExecutor
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db core.DBExecutor) *assessmentRepository {
	return &assessmentRepository{db: db}
}

type instanceRow struct {
	ID                 string      `db:"id"`
	SchoolID           null.String `db:"school_id"`
	SnapshotID         null.String `db:"template_snapshot_id"`
	TransformationYear null.Int    `db:"transformation_year"`
	Status             null.String `db:"status"`
}

func (r instanceRow) instance() assessment.Instance {
	return assessment.Instance{
		ID:                 r.ID,
		SchoolID:           r.SchoolID.String,
		SnapshotID:         r.SnapshotID.String,
		TransformationYear: r.TransformationYear.Int,
		Status:             r.Status.String,
	}
}

type snapshotRow struct {
	ID      string   `db:"id"`
	Version null.Int `db:"version"`
	Data    []byte   `db:"snapshot_data"`
}

type responseRow struct {
	InstanceID  string       `db:"instance_id"`
	IndicatorID string       `db:"indicator_id"`
	Category    null.String  `db:"category"`
	RawValue    null.Int     `db:"raw_value"`
	Weight      null.Float64 `db:"weight"`
}

func (r responseRow) response() assessment.IndicatorResponse {
	return assessment.IndicatorResponse{
		InstanceID:  r.InstanceID,
		IndicatorID: r.IndicatorID,
		Category:    r.Category.String,
		RawValue:    r.RawValue.Int,
		Weight:      r.Weight.Float64,
	}
}

type resultRow struct {
	ID                 string      `db:"id"`
	InstanceID         string      `db:"instance_id"`
	Area               null.String `db:"area"`
	TransformationYear null.Int    `db:"transformation_year"`
	TotalScore         float64     `db:"total_score"`
	OverallLevel       int         `db:"overall_level"`
	ExpectedLevel      int         `db:"expected_level"`
	MeetsExpectations  bool        `db:"meets_expectations"`
	ModuleScores       []byte      `db:"module_scores"`
	GapAnalysis        []byte      `db:"gap_analysis"`
	CalculatedAt       null.Time   `db:"calculated_at"`
}

func (r resultRow) summary() (assessment.InstanceSummary, error) {
	summary := assessment.InstanceSummary{
		InstanceID:         r.InstanceID,
		Area:               r.Area.String,
		TransformationYear: r.TransformationYear.Int,
		TotalScore:         r.TotalScore,
		OverallLevel:       r.OverallLevel,
		ExpectedLevel:      r.ExpectedLevel,
		MeetsExpectations:  r.MeetsExpectations,
		CalculatedAt:       r.CalculatedAt.Time,
	}
	if len(r.ModuleScores) > 0 {
		if err := json.Unmarshal(r.ModuleScores, &summary.ModuleScores); err != nil {
			return assessment.InstanceSummary{}, errors.Wrap(err, "decoding module scores")
		}
	}
	if len(r.GapAnalysis) > 0 {
		if err := json.Unmarshal(r.GapAnalysis, &summary.GapAnalysis); err != nil {
			return assessment.InstanceSummary{}, errors.Wrap(err, "decoding gap analysis")
		}
	}
	return summary, nil
}

// trapNoRowsErr maps psql "no rows" err to the given domain sentinel.
func trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo assessmentRepository) GetInstance(ctx context.Context, instanceID string) (assessment.Instance, error) {
	if _, err := uuid.Parse(instanceID); err != nil {
		return assessment.Instance{}, assessment.ErrNotFound
	}

	var row instanceRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, school_id, template_snapshot_id, transformation_year, status
		 FROM assessment_instance WHERE id = $1`, instanceID)
	if err != nil {
		return assessment.Instance{}, trapNoRowsErr(err, assessment.ErrNotFound, "finding instance")
	}
	return row.instance(), nil
}

func (repo assessmentRepository) GetSnapshot(ctx context.Context, snapshotID string) (assessment.TemplateSnapshot, error) {
	if _, err := uuid.Parse(snapshotID); err != nil {
		return assessment.TemplateSnapshot{}, assessment.ErrSnapshotNotFound
	}

	var row snapshotRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, version, snapshot_data FROM assessment_template_snapshot WHERE id = $1`, snapshotID)
	if err != nil {
		return assessment.TemplateSnapshot{}, trapNoRowsErr(err, assessment.ErrSnapshotNotFound, "finding snapshot")
	}

	var snapshot assessment.TemplateSnapshot
	if err = json.Unmarshal(row.Data, &snapshot); err != nil {
		return assessment.TemplateSnapshot{}, errors.Wrap(err, "decoding snapshot data")
	}
	snapshot.ID = row.ID
	snapshot.Version = row.Version.Int
	return snapshot, nil
}

func (repo assessmentRepository) QueryResponses(ctx context.Context, instanceID string) ([]assessment.IndicatorResponse, error) {
	var rows []responseRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT instance_id, indicator_id, category, raw_value, weight
		 FROM assessment_response WHERE instance_id = $1 ORDER BY indicator_id`, instanceID)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}

	responses := make([]assessment.IndicatorResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, row.response())
	}
	return responses, nil
}

func (repo assessmentRepository) GetResult(ctx context.Context, instanceID string) (assessment.InstanceSummary, error) {
	var row resultRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, instance_id, area, transformation_year, total_score, overall_level,
		        expected_level, meets_expectations, module_scores, gap_analysis, calculated_at
		 FROM assessment_instance_result WHERE instance_id = $1`, instanceID)
	if err != nil {
		return assessment.InstanceSummary{}, trapNoRowsErr(err, assessment.ErrResultNotFound, "finding result")
	}
	return row.summary()
}

func (repo assessmentRepository) UpsertResult(ctx context.Context, summary assessment.InstanceSummary) (assessment.InstanceSummary, error) {
	moduleScores, err := json.Marshal(summary.ModuleScores)
	if err != nil {
		return assessment.InstanceSummary{}, errors.Wrap(err, "encoding module scores")
	}
	gapAnalysis, err := json.Marshal(summary.GapAnalysis)
	if err != nil {
		return assessment.InstanceSummary{}, errors.Wrap(err, "encoding gap analysis")
	}

	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO assessment_instance_result
		   (id, instance_id, area, transformation_year, total_score, overall_level,
		    expected_level, meets_expectations, module_scores, gap_analysis, calculated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (instance_id) DO UPDATE SET
		   area = EXCLUDED.area,
		   transformation_year = EXCLUDED.transformation_year,
		   total_score = EXCLUDED.total_score,
		   overall_level = EXCLUDED.overall_level,
		   expected_level = EXCLUDED.expected_level,
		   meets_expectations = EXCLUDED.meets_expectations,
		   module_scores = EXCLUDED.module_scores,
		   gap_analysis = EXCLUDED.gap_analysis,
		   calculated_at = EXCLUDED.calculated_at`,
		uuid.New().String(), summary.InstanceID, summary.Area, summary.TransformationYear,
		summary.TotalScore, summary.OverallLevel, summary.ExpectedLevel, summary.MeetsExpectations,
		moduleScores, gapAnalysis, null.TimeFrom(summary.CalculatedAt.UTC()))
	if err != nil {
		return assessment.InstanceSummary{}, errors.Wrap(err, "upserting result")
	}
	return summary, nil
}

func (repo assessmentRepository) QuerySchoolInstances(ctx context.Context, schoolID string, onlyCompleted bool) ([]assessment.Instance, error) {
	query := `SELECT id, school_id, template_snapshot_id, transformation_year, status
	          FROM assessment_instance WHERE school_id = $1`
	args := []interface{}{schoolID}
	if onlyCompleted {
		query += ` AND status = $2`
		args = append(args, assessment.StatusCompleted)
	}
	query += ` ORDER BY id`

	var rows []instanceRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying school instances")
	}

	instances := make([]assessment.Instance, 0, len(rows))
	for _, row := range rows {
		instances = append(instances, row.instance())
	}
	return instances, nil
}
