package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/fnelms/backend/core"
	"github.com/fnelms/backend/core/enrollment"
)

type enrollmentRepository struct {
	db core.DBExecutor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

type lessonBlockRow struct {
	LessonID   string `db:"lesson_id"`
	BlockCount int    `db:"block_count"`
}

type progressEventRow struct {
	UserID      string    `db:"user_id"`
	CourseID    string    `db:"course_id"`
	LessonID    string    `db:"lesson_id"`
	BlockID     string    `db:"block_id"`
	CompletedAt null.Time `db:"completed_at"`
}

func (r progressEventRow) event() enrollment.ProgressEvent {
	return enrollment.ProgressEvent{
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		LessonID:    r.LessonID,
		BlockID:     r.BlockID,
		CompletedAt: r.CompletedAt.Time.UTC(),
	}
}

type enrollmentRow struct {
	ID                 string    `db:"id"`
	UserID             string    `db:"user_id"`
	CourseID           string    `db:"course_id"`
	LessonsCompleted   int       `db:"lessons_completed"`
	ProgressPercentage int       `db:"progress_percentage"`
	IsCompleted        bool      `db:"is_completed"`
	CompletedAt        null.Time `db:"completed_at"`
	UpdatedAt          null.Time `db:"updated_at"`
}

func (r enrollmentRow) summary() enrollment.EnrollmentSummary {
	return enrollment.EnrollmentSummary{
		ID:                 r.ID,
		UserID:             r.UserID,
		CourseID:           r.CourseID,
		LessonsCompleted:   r.LessonsCompleted,
		ProgressPercentage: r.ProgressPercentage,
		IsCompleted:        r.IsCompleted,
		CompletedAt:        r.CompletedAt,
		UpdatedAt:          r.UpdatedAt.Time.UTC(),
	}
}

func (repo enrollmentRepository) GetCourseStructure(ctx context.Context, courseID string) (enrollment.CourseStructure, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return enrollment.CourseStructure{}, enrollment.ErrCourseNotFound
	}

	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM course WHERE id = $1)`, courseID)
	if err != nil {
		return enrollment.CourseStructure{}, errors.Wrap(err, "finding course")
	}
	if !exists {
		return enrollment.CourseStructure{}, enrollment.ErrCourseNotFound
	}

	var rows []lessonBlockRow
	err = repo.db.SelectContext(ctx, &rows,
		`SELECT l.id AS lesson_id, COUNT(b.id) AS block_count
		 FROM lesson l
		 LEFT JOIN block b ON b.lesson_id = l.id
		 WHERE l.course_id = $1
		 GROUP BY l.id`, courseID)
	if err != nil {
		return enrollment.CourseStructure{}, errors.Wrap(err, "querying course structure")
	}

	structure := enrollment.CourseStructure{
		CourseID: courseID,
		Lessons:  make(map[string]int, len(rows)),
	}
	for _, row := range rows {
		structure.Lessons[row.LessonID] = row.BlockCount
	}
	return structure, nil
}

func (repo enrollmentRepository) QueryProgressEvents(ctx context.Context, userID, courseID string) ([]enrollment.ProgressEvent, error) {
	var rows []progressEventRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT p.user_id, l.course_id, p.lesson_id, p.block_id, p.completed_at
		 FROM lesson_progress p
		 JOIN lesson l ON l.id = p.lesson_id
		 WHERE p.user_id = $1 AND l.course_id = $2 AND p.completed_at IS NOT NULL
		 ORDER BY p.completed_at`, userID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying progress events")
	}

	events := make([]enrollment.ProgressEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string) (enrollment.EnrollmentSummary, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, user_id, course_id, lessons_completed, progress_percentage,
		        is_completed, completed_at, updated_at
		 FROM course_enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return enrollment.EnrollmentSummary{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.summary(), nil
}

func (repo enrollmentRepository) QueryCourseUserIDs(ctx context.Context, courseID string) ([]string, error) {
	var userIDs []string
	err := repo.db.SelectContext(ctx, &userIDs,
		`SELECT user_id FROM course_enrollment WHERE course_id = $1
		 UNION
		 SELECT p.user_id
		 FROM lesson_progress p
		 JOIN lesson l ON l.id = p.lesson_id
		 WHERE l.course_id = $1
		 ORDER BY user_id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course users")
	}
	return userIDs, nil
}

func (repo enrollmentRepository) UpsertEnrollment(ctx context.Context, summary enrollment.EnrollmentSummary) (enrollment.EnrollmentSummary, error) {
	id := summary.ID
	if id == "" {
		id = uuid.New().String()
	}

	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`INSERT INTO course_enrollment
		   (id, user_id, course_id, lessons_completed, progress_percentage,
		    is_completed, completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, course_id) DO UPDATE SET
		   lessons_completed = EXCLUDED.lessons_completed,
		   progress_percentage = EXCLUDED.progress_percentage,
		   is_completed = EXCLUDED.is_completed,
		   completed_at = EXCLUDED.completed_at,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, user_id, course_id, lessons_completed, progress_percentage,
		           is_completed, completed_at, updated_at`,
		id, summary.UserID, summary.CourseID, summary.LessonsCompleted, summary.ProgressPercentage,
		summary.IsCompleted, summary.CompletedAt, null.TimeFrom(summary.UpdatedAt.UTC()))
	if err != nil {
		return enrollment.EnrollmentSummary{}, errors.Wrap(err, "upserting enrollment")
	}
	return row.summary(), nil
}
