package coursedb

import (
	"context"
	"database/sql"

	"gradescope-backend/lib/scrapers/gradescope/view"

	_ "modernc.org/sqlite"
)

// Store owns the relational side of a scrape run. All inserts are
// idempotent (INSERT OR IGNORE on the natural keys) so re-running a scrape
// against unchanged source state is a no-op.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) InsertCourse(ctx context.Context, course view.Course) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO instructor_course (id, short_name, name)
		 VALUES (?, ?, ?)`,
		course.Id, course.ShortName, course.Name,
	)
	return err
}

func (s Store) InsertAssignment(ctx context.Context, assignment view.Assignment) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO assignment (id, course_id, name, points)
		 VALUES (?, ?, ?, ?)`,
		assignment.Id, assignment.CourseId, assignment.Name, assignment.Points,
	)
	return err
}

func (s Store) InsertRegrade(ctx context.Context, regrade view.RegradeRequest) error {
	completed := 0
	if regrade.Completed {
		completed = 1
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO regrade
		 (assignment_id, student_name, question_number, question_title, grader_name, completed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		regrade.AssignmentId,
		regrade.StudentName,
		regrade.QuestionNumber,
		regrade.QuestionTitle,
		regrade.GraderName,
		completed,
	)
	return err
}

func (s Store) ListCourses(ctx context.Context) ([]view.Course, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, short_name, name FROM instructor_course ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []view.Course
	for rows.Next() {
		var course view.Course
		err := rows.Scan(&course.Id, &course.ShortName, &course.Name)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (s Store) ListAssignments(ctx context.Context, courseId string) ([]view.Assignment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, course_id, name, points FROM assignment
		 WHERE course_id = ? ORDER BY id`,
		courseId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []view.Assignment
	for rows.Next() {
		var assignment view.Assignment
		err := rows.Scan(&assignment.Id, &assignment.CourseId, &assignment.Name, &assignment.Points)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, rows.Err()
}

func (s Store) ListRegrades(ctx context.Context, assignmentId string) ([]view.RegradeRequest, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT assignment_id, student_name, question_number, question_title, grader_name, completed
		 FROM regrade WHERE assignment_id = ?
		 ORDER BY student_name, question_number`,
		assignmentId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regrades []view.RegradeRequest
	for rows.Next() {
		var regrade view.RegradeRequest
		var completed int
		err := rows.Scan(
			&regrade.AssignmentId,
			&regrade.StudentName,
			&regrade.QuestionNumber,
			&regrade.QuestionTitle,
			&regrade.GraderName,
			&completed,
		)
		if err != nil {
			return nil, err
		}
		regrade.Completed = completed != 0
		regrades = append(regrades, regrade)
	}
	return regrades, rows.Err()
}
