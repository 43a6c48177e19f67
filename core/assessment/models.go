package assessment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fnelms/backend/core"
)

// Maturity levels range over [MinLevel, MaxLevel]; a level is derived from a
// normalized 0-100 score, 25 points per level.
const (
	MinLevel = 0
	MaxLevel = 4
)

// Transformation years select which expectation column applies.
const (
	MinYear = 1
	MaxYear = 5
)

const (
	DefaultWeight    float64 = 1
	DefaultTolerance         = 1
)

// Indicator categories.
const (
	CategoryPedagogical    = "pedagogical"
	CategoryAdministrative = "administrative"
)

// Instance statuses.
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// GapClassification buckets an indicator's actual-vs-expected deviation.
type GapClassification string

const (
	GapCritical GapClassification = "critical"
	GapBehind   GapClassification = "behind"
	GapOnTrack  GapClassification = "on_track"
	GapAhead    GapClassification = "ahead"
)

// expectedOverallLevels maps a school's transformation year to the overall
// maturity level it is expected to have reached by then.
var expectedOverallLevels = map[int]int{
	1: 1,
	2: 1,
	3: 2,
	4: 3,
	5: 3,
}

// ExpectationEntry is per-indicator expectation configuration, authored by an
// administrator and versioned alongside the template snapshot it belongs to.
type ExpectationEntry struct {
	IndicatorID string `json:"indicator_id"`
	// ExpectedLevelByYear holds the expected levels for transformation years
	// 1-5 in order; an invalid entry means no expectation for that year.
	ExpectedLevelByYear [5]null.Int `json:"expected_level_by_year"`
	// Tolerance is the permitted deviation band around the expected level;
	// defaults to DefaultTolerance when unset.
	Tolerance null.Int `json:"tolerance"`
}

func (e *ExpectationEntry) tolerance() int {
	if e == nil || !e.Tolerance.Valid {
		return DefaultTolerance
	}
	return e.Tolerance.Int
}

// Indicator is the smallest rated unit in an assessment, as configured in a
// template snapshot.
type Indicator struct {
	ID           string            `json:"id" validate:"required"`
	Name         string            `json:"name"`
	Category     string            `json:"category" validate:"omitempty,oneof=pedagogical administrative"`
	Weight       float64           `json:"weight" validate:"gte=0"`
	Expectations *ExpectationEntry `json:"expectations,omitempty"`
}

func (ind Indicator) weight() float64 {
	if ind.Weight <= 0 {
		return DefaultWeight
	}
	return ind.Weight
}

// Module is a weighted group of indicators.
type Module struct {
	ID         string      `json:"id" validate:"required"`
	Name       string      `json:"name"`
	Weight     float64     `json:"weight" validate:"gte=0"`
	Indicators []Indicator `json:"indicators" validate:"dive"`
}

func (mod Module) weight() float64 {
	if mod.Weight <= 0 {
		return DefaultWeight
	}
	return mod.Weight
}

// TemplateSnapshot is the immutable, versioned template configuration an
// instance is scored against. Snapshots never change once published; a new
// edit creates a new version, so historical results stay reproducible.
type TemplateSnapshot struct {
	ID      string   `json:"id"`
	Version int      `json:"version"`
	Area    string   `json:"area"`
	Modules []Module `json:"modules" validate:"dive"`
}

func (s *TemplateSnapshot) Validate() error {
	if err := core.Validate.Struct(s); err != nil {
		return err
	}

	var flds []core.FieldError
	for _, mod := range s.Modules {
		for _, ind := range mod.Indicators {
			if exp := ind.Expectations; exp != nil {
				if exp.Tolerance.Valid && exp.Tolerance.Int < 0 {
					flds = append(flds, core.FieldError{Field: ind.ID, Error: "tolerance must be >= 0"})
				}
				for _, lvl := range exp.ExpectedLevelByYear {
					if lvl.Valid && (lvl.Int < MinLevel || lvl.Int > MaxLevel) {
						flds = append(flds, core.FieldError{Field: ind.ID, Error: "expected level out of range"})
					}
				}
			}
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(ErrInvalidSnapshot, flds...)
	}
	return nil
}

// Instance is one assessment run of a school against a snapshot version.
type Instance struct {
	ID                 string `json:"id"`
	SchoolID           string `json:"school_id"`
	SnapshotID         string `json:"template_snapshot_id"`
	TransformationYear int    `json:"transformation_year"`
	Status             string `json:"status"`
}

// IndicatorResponse is one observed rating for one indicator within one
// instance. Immutable once recorded.
type IndicatorResponse struct {
	InstanceID  string  `json:"instance_id"`
	IndicatorID string  `json:"indicator_id" validate:"required"`
	Category    string  `json:"category" validate:"omitempty,oneof=pedagogical administrative"`
	RawValue    int     `json:"raw_value"`
	Weight      float64 `json:"weight" validate:"gte=0"`
}

func (r *IndicatorResponse) Validate() error {
	r.IndicatorID = core.CleanString(r.IndicatorID)
	if err := core.Validate.Struct(r); err != nil {
		return err
	}
	if r.RawValue < MinLevel || r.RawValue > MaxLevel {
		return core.NewValidationError(
			ErrInvalidIndicatorValue,
			core.FieldError{Field: "raw_value", Error: ErrInvalidIndicatorValue.Error()},
		)
	}
	return nil
}

// IndicatorScore is an indicator's contribution to its module score.
type IndicatorScore struct {
	IndicatorID  string  `json:"indicator_id"`
	Category     string  `json:"category,omitempty"`
	RawValue     int     `json:"raw_value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// ModuleScore is derived from a module's responses; it is never source of
// truth and is recomputed on demand.
type ModuleScore struct {
	ModuleID        string           `json:"module_id"`
	ModuleName      string           `json:"module_name,omitempty"`
	ModuleWeight    float64          `json:"module_weight"`
	NormalizedScore float64          `json:"normalized_score"` // 0-100
	Level           int              `json:"level"`            // 0-4
	// Empty signals a module configured with indicators that produced zero
	// responses. A soft warning, not an error: callers decide whether to
	// exclude the module or treat it as level 0.
	Empty      bool             `json:"empty,omitempty"`
	Indicators []IndicatorScore `json:"indicators"`
}

// IndicatorGap is the per-indicator actual-vs-expected comparison.
type IndicatorGap struct {
	IndicatorID   string   `json:"indicator_id"`
	IndicatorName string   `json:"indicator_name,omitempty"`
	Category      string   `json:"category,omitempty"`
	ActualLevel   int      `json:"actual_level"`
	ExpectedLevel null.Int `json:"expected_level"`
	// Gap is actual minus expected; only meaningful when ExpectedLevel is set.
	Gap            int               `json:"gap"`
	Tolerance      int               `json:"tolerance"`
	Classification GapClassification `json:"classification,omitempty"`
}

// Classified reports whether the indicator took part in gap statistics;
// indicators without a configured expectation never do.
func (g IndicatorGap) Classified() bool { return g.ExpectedLevel.Valid }

type GapStats struct {
	Total         int `json:"total"`
	Ahead         int `json:"ahead"`
	OnTrack       int `json:"on_track"`
	Behind        int `json:"behind"`
	Critical      int `json:"critical"`
	NotConfigured int `json:"not_configured"`
}

// GapAnalysis aggregates indicator gaps for one instance.
type GapAnalysis struct {
	Stats GapStats `json:"stats"`
	// AvgGap is the mean gap over classified indicators only. SampleSize
	// carries the number of classified indicators so an empty sample is not
	// misread as "no gap".
	AvgGap             float64        `json:"avg_gap"`
	SampleSize         int            `json:"sample_size"`
	Indicators         []IndicatorGap `json:"indicators"`
	CriticalIndicators []IndicatorGap `json:"critical_indicators"`
	BehindIndicators   []IndicatorGap `json:"behind_indicators"`
}

// InstanceSummary is the top-level aggregate for one completed instance.
// Recomputation is idempotent: it depends only on raw responses and the
// snapshot configuration, never on a previously stored summary.
type InstanceSummary struct {
	InstanceID         string        `json:"instance_id"`
	Area               string        `json:"area,omitempty"`
	TransformationYear int           `json:"transformation_year"`
	TotalScore         float64       `json:"total_score"`
	OverallLevel       int           `json:"overall_level"`
	ExpectedLevel      int           `json:"expected_level"`
	MeetsExpectations  bool          `json:"meets_expectations"`
	ModuleScores       []ModuleScore `json:"module_scores"`
	GapAnalysis        GapAnalysis   `json:"gap_analysis"`
	CalculatedAt       time.Time     `json:"calculated_at"` // UTC; set by the caller, not the engine
}
