package enrollment

import (
	"math"

	"github.com/volatiletech/null/v8"
)

// Projection is the result of replaying a (user, course) event log against the
// course structure: the true summary plus the evidence drift detection needs.
type Projection struct {
	Summary EnrollmentSummary
	// QualifyingEvents counts events that map to a known block of the course.
	QualifyingEvents int
	// LatestEvent is the timestamp of the most recent qualifying event.
	LatestEvent null.Time
}

// Project replays the event log for one (user, course) pair.
//
// A lesson counts as completed only when every one of its blocks has at least
// one event; any weaker rule ("any block touched") over-reports completion and
// is exactly the drift the reconciler exists to catch. Events referencing
// blocks or lessons unknown to the course structure are ignored.
func Project(events []ProgressEvent, structure CourseStructure) Projection {
	// distinct completed blocks per lesson
	blocksDone := make(map[string]map[string]struct{}, len(structure.Lessons))
	var proj Projection

	for _, evt := range events {
		blockCount, ok := structure.Lessons[evt.LessonID]
		if !ok || blockCount <= 0 {
			continue
		}
		done, ok := blocksDone[evt.LessonID]
		if !ok {
			done = make(map[string]struct{}, blockCount)
			blocksDone[evt.LessonID] = done
		}
		done[evt.BlockID] = struct{}{}

		proj.QualifyingEvents++
		if !proj.LatestEvent.Valid || evt.CompletedAt.After(proj.LatestEvent.Time) {
			proj.LatestEvent = null.TimeFrom(evt.CompletedAt)
		}
	}

	var lessonsCompleted int
	for lessonID, blockCount := range structure.Lessons {
		if len(blocksDone[lessonID]) >= blockCount && blockCount > 0 {
			lessonsCompleted++
		}
	}

	summary := EnrollmentSummary{
		UserID:           firstUserID(events),
		CourseID:         structure.CourseID,
		LessonsCompleted: lessonsCompleted,
	}
	if total := len(structure.Lessons); total > 0 {
		summary.ProgressPercentage = int(math.Round(100 * float64(lessonsCompleted) / float64(total)))
	}
	summary.IsCompleted = summary.ProgressPercentage >= 100
	if summary.IsCompleted {
		summary.CompletedAt = proj.LatestEvent
	}

	proj.Summary = summary
	return proj
}

func firstUserID(events []ProgressEvent) string {
	if len(events) > 0 {
		return events[0].UserID
	}
	return ""
}

// Reconcile computes the true enrollment summary from the raw event log.
func Reconcile(events []ProgressEvent, structure CourseStructure) EnrollmentSummary {
	return Project(events, structure).Summary
}

// DetectDrift compares the projection against the cached enrollment row and
// reports a mismatch, or nil when the cache is consistent. Detection never
// mutates anything: correction is the separate Apply step, so dry runs and
// live runs share this exact logic.
func (proj Projection) DetectDrift(cached *EnrollmentSummary) *Mismatch {
	mismatch := &Mismatch{
		UserID:           proj.Summary.UserID,
		CourseID:         proj.Summary.CourseID,
		ComputedProgress: proj.Summary.ProgressPercentage,
		LatestEvent:      proj.LatestEvent,
	}

	if cached == nil {
		mismatch.Kind = MismatchNoEnrollment
		return mismatch
	}

	mismatch.CachedProgress = cached.ProgressPercentage
	mismatch.CachedUpdatedAt = null.TimeFrom(cached.UpdatedAt)
	if cached.UserID != "" {
		mismatch.UserID = cached.UserID
	}

	if cached.ProgressPercentage == 0 && proj.QualifyingEvents > 0 {
		if proj.LatestEvent.Valid && cached.UpdatedAt.Before(proj.LatestEvent.Time) {
			mismatch.Kind = MismatchStaleEnrollment
		} else {
			mismatch.Kind = MismatchZeroProgress
		}
		return mismatch
	}
	return nil
}
