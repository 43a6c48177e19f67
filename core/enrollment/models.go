package enrollment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/fnelms/backend/core"
)

// MismatchKind classifies drift between the cached enrollment row and the
// projection of the progress event log.
type MismatchKind string

const (
	// MismatchNoEnrollment: no cached enrollment row exists at all.
	MismatchNoEnrollment MismatchKind = "no_enrollment"
	// MismatchZeroProgress: the cached row reports 0% even though qualifying
	// progress events exist, and the row is not older than those events.
	MismatchZeroProgress MismatchKind = "zero_progress_despite_events"
	// MismatchStaleEnrollment: the cached row reports 0% and was last updated
	// before the latest qualifying event.
	MismatchStaleEnrollment MismatchKind = "stale_enrollment"
)

// ProgressEvent records that a user completed one content block of a lesson.
// Events are append-only; the set of events for a (user, course) pair is the
// sole source of truth for computing completion.
type ProgressEvent struct {
	UserID      string    `json:"user_id" validate:"required"`
	CourseID    string    `json:"course_id" validate:"required"`
	LessonID    string    `json:"lesson_id" validate:"required"`
	BlockID     string    `json:"block_id" validate:"required"`
	CompletedAt time.Time `json:"completed_at"` // UTC
}

func (e *ProgressEvent) Validate() error {
	e.UserID = core.CleanString(e.UserID)
	e.CourseID = core.CleanString(e.CourseID)
	e.LessonID = core.CleanString(e.LessonID)
	e.BlockID = core.CleanString(e.BlockID)
	return core.Validate.Struct(e)
}

// CourseStructure maps each of a course's lessons to its content block count.
type CourseStructure struct {
	CourseID string
	// Lessons maps lesson ID -> number of blocks in the lesson.
	Lessons map[string]int
}

// EnrollmentSummary is the cached projection of a user's progress through a
// course. It may drift from the event log if never refreshed; any writer other
// than the reconciler is a potential drift source.
type EnrollmentSummary struct {
	ID                 string    `json:"id,omitempty"`
	UserID             string    `json:"user_id"`
	CourseID           string    `json:"course_id"`
	LessonsCompleted   int       `json:"lessons_completed"`
	ProgressPercentage int       `json:"progress_percentage"`
	IsCompleted        bool      `json:"is_completed"`
	CompletedAt        null.Time `json:"completed_at"`
	UpdatedAt          time.Time `json:"updated_at"` // UTC
}

// Mismatch is a consistency finding, not an error: detection returns it as
// data and never corrects anything on its own.
type Mismatch struct {
	Kind             MismatchKind `json:"kind"`
	UserID           string       `json:"user_id"`
	CourseID         string       `json:"course_id"`
	CachedProgress   int          `json:"cached_progress"`
	ComputedProgress int          `json:"computed_progress"`
	LatestEvent      null.Time    `json:"latest_event"`
	CachedUpdatedAt  null.Time    `json:"cached_updated_at"`
}

// Finding pairs the recomputed summary with the drift detected against the
// cached row, if any.
type Finding struct {
	Computed EnrollmentSummary  `json:"computed"`
	Cached   *EnrollmentSummary `json:"cached,omitempty"`
	Mismatch *Mismatch          `json:"mismatch,omitempty"`
}
