package testutil

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fnelms/backend/core/assessment"
	"github.com/fnelms/backend/core/enrollment"
)

func NewSnapshot(id string, area string, modules ...assessment.Module) assessment.TemplateSnapshot {
	return assessment.TemplateSnapshot{
		ID:      id,
		Version: 1,
		Area:    area,
		Modules: modules,
	}
}

func NewModule(id string, weight float64, indicators ...assessment.Indicator) assessment.Module {
	return assessment.Module{
		ID:         id,
		Name:       id,
		Weight:     weight,
		Indicators: indicators,
	}
}

func NewIndicator(id, category string, weight float64, expectations *assessment.ExpectationEntry) assessment.Indicator {
	return assessment.Indicator{
		ID:           id,
		Name:         id,
		Category:     category,
		Weight:       weight,
		Expectations: expectations,
	}
}

// Expectation builds entries with the same expected level for all 5 years.
func Expectation(indicatorID string, tolerance, level int) *assessment.ExpectationEntry {
	entry := &assessment.ExpectationEntry{
		IndicatorID: indicatorID,
		Tolerance:   null.IntFrom(tolerance),
	}
	for i := range entry.ExpectedLevelByYear {
		entry.ExpectedLevelByYear[i] = null.IntFrom(level)
	}
	return entry
}

func NewResponse(instanceID, indicatorID string, rawValue int, weight float64) assessment.IndicatorResponse {
	return assessment.IndicatorResponse{
		InstanceID:  instanceID,
		IndicatorID: indicatorID,
		RawValue:    rawValue,
		Weight:      weight,
	}
}

func NewCourse(courseID string, lessons map[string]int) enrollment.CourseStructure {
	return enrollment.CourseStructure{CourseID: courseID, Lessons: lessons}
}

func NewEvent(userID, courseID, lessonID, blockID string, completedAt time.Time) enrollment.ProgressEvent {
	return enrollment.ProgressEvent{
		UserID:      userID,
		CourseID:    courseID,
		LessonID:    lessonID,
		BlockID:     blockID,
		CompletedAt: completedAt.UTC(),
	}
}

func NewEnrollment(id, userID, courseID string, lessonsCompleted, pct int, updatedAt time.Time) enrollment.EnrollmentSummary {
	return enrollment.EnrollmentSummary{
		ID:                 id,
		UserID:             userID,
		CourseID:           courseID,
		LessonsCompleted:   lessonsCompleted,
		ProgressPercentage: pct,
		IsCompleted:        pct >= 100,
		UpdatedAt:          updatedAt.UTC(),
	}
}
