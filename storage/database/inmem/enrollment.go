package inmemdb

import (
	"context"
	"sort"
	"strconv"

	"github.com/fnelms/backend/core/enrollment"
)

var pkCount int

func newPK(n int) string { return "inmem-" + strconv.Itoa(n) }

type enrollmentRepository struct {
	db *enrollmentTables
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enrollment}
}

// SeedCourse stores a course structure for tests.
func (repo *enrollmentRepository) SeedCourse(structure enrollment.CourseStructure) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.courses[structure.CourseID] = &structure
}

// SeedEvents appends progress events for tests.
func (repo *enrollmentRepository) SeedEvents(events ...enrollment.ProgressEvent) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.events = append(repo.db.events, events...)
}

// SeedEnrollment stores a cached enrollment row for tests.
func (repo *enrollmentRepository) SeedEnrollment(summary enrollment.EnrollmentSummary) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.enrollments[summary.UserID+"/"+summary.CourseID] = &summary
}

func (repo *enrollmentRepository) GetCourseStructure(ctx context.Context, courseID string) (enrollment.CourseStructure, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if structure, ok := repo.db.courses[courseID]; ok {
		return *structure, nil
	}
	return enrollment.CourseStructure{}, enrollment.ErrCourseNotFound
}

func (repo *enrollmentRepository) QueryProgressEvents(ctx context.Context, userID, courseID string) ([]enrollment.ProgressEvent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []enrollment.ProgressEvent
	for _, evt := range repo.db.events {
		if evt.UserID == userID && evt.CourseID == courseID {
			events = append(events, evt)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CompletedAt.Before(events[j].CompletedAt) })
	return events, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string) (enrollment.EnrollmentSummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if summary, ok := repo.db.enrollments[userID+"/"+courseID]; ok {
		return *summary, nil
	}
	return enrollment.EnrollmentSummary{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryCourseUserIDs(ctx context.Context, courseID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	for _, summary := range repo.db.enrollments {
		if summary.CourseID == courseID {
			seen[summary.UserID] = true
		}
	}
	for _, evt := range repo.db.events {
		if evt.CourseID == courseID {
			seen[evt.UserID] = true
		}
	}

	userIDs := make([]string, 0, len(seen))
	for id := range seen {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	return userIDs, nil
}

func (repo *enrollmentRepository) UpsertEnrollment(ctx context.Context, summary enrollment.EnrollmentSummary) (enrollment.EnrollmentSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := summary.UserID + "/" + summary.CourseID
	if existing, ok := repo.db.enrollments[key]; ok && summary.ID == "" {
		summary.ID = existing.ID
	}
	if summary.ID == "" {
		pkCount++
		summary.ID = newPK(pkCount)
	}
	repo.db.enrollments[key] = &summary
	return summary, nil
}
