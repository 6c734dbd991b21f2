package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-caddie/core/golf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AddCourse stores course and its holes. Hole notes carried on the course
// are stored too.
func (s *Store) AddCourse(ctx context.Context, course golf.Course) error {
	if strings.TrimSpace(course.ID) == "" {
		return errors.New("storage: course id is required")
	}
	if _, err := golf.NewRegistry(course.Holes); err != nil {
		return fmt.Errorf("storage: course %s: %w", course.ID, err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO courses (id, name) VALUES (?, ?)`,
			course.ID, course.Name,
		); err != nil {
			return err
		}
		for _, hole := range course.Holes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO holes (course_id, hole_number, par, yardage, description) VALUES (?, ?, ?, ?, ?)`,
				course.ID, hole.HoleNumber, hole.Par, hole.Yardage, hole.Description,
			); err != nil {
				return err
			}
			for _, note := range hole.Notes {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO hole_notes (course_id, hole_number, text) VALUES (?, ?, ?)`,
					course.ID, hole.HoleNumber, note,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: add course %s: %w", course.ID, err)
	}
	return nil
}

// Course returns the course with its holes and their notes, oldest note
// first.
func (s *Store) Course(ctx context.Context, id string) (golf.Course, error) {
	var course golf.Course
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM courses WHERE id = ?`, id).
		Scan(&course.ID, &course.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return golf.Course{}, fmt.Errorf("storage: course %s: %w", id, ErrNotFound)
	} else if err != nil {
		return golf.Course{}, fmt.Errorf("storage: get course %s: %w", id, err)
	}

	if course.Holes, err = s.holes(ctx, id); err != nil {
		return golf.Course{}, err
	}
	return course, nil
}

// Courses lists every stored course by name.
func (s *Store) Courses(ctx context.Context) ([]golf.Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM courses ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("storage: list courses: %w", err)
	}
	var courses []golf.Course
	for rows.Next() {
		var course golf.Course
		if err := rows.Scan(&course.ID, &course.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage: scan course: %w", err)
		}
		courses = append(courses, course)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list courses: %w", err)
	}

	for i := range courses {
		if courses[i].Holes, err = s.holes(ctx, courses[i].ID); err != nil {
			return nil, err
		}
	}
	return courses, nil
}

func (s *Store) holes(ctx context.Context, courseID string) ([]golf.Hole, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hole_number, par, yardage, description FROM holes WHERE course_id = ? ORDER BY hole_number`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list holes for %s: %w", courseID, err)
	}
	defer rows.Close()

	var holes []golf.Hole
	for rows.Next() {
		var hole golf.Hole
		if err := rows.Scan(&hole.HoleNumber, &hole.Par, &hole.Yardage, &hole.Description); err != nil {
			return nil, fmt.Errorf("storage: scan hole: %w", err)
		}
		holes = append(holes, hole)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list holes for %s: %w", courseID, err)
	}
	rows.Close()

	notes, err := s.db.QueryContext(ctx,
		`SELECT hole_number, text FROM hole_notes WHERE course_id = ? ORDER BY id`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list notes for %s: %w", courseID, err)
	}
	defer notes.Close()

	for notes.Next() {
		var (
			number int
			text   string
		)
		if err := notes.Scan(&number, &text); err != nil {
			return nil, fmt.Errorf("storage: scan note: %w", err)
		}
		if i := number - 1; i >= 0 && i < len(holes) {
			holes[i].Notes = append(holes[i].Notes, text)
		}
	}
	if err := notes.Err(); err != nil {
		return nil, fmt.Errorf("storage: list notes for %s: %w", courseID, err)
	}
	return holes, nil
}

// AddNote appends a note to a hole of a stored course.
func (s *Store) AddNote(ctx context.Context, courseID string, holeNumber int, text string) error {
	ctx, span := tracer.Start(ctx, "store.add_note", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.Int("hole.number", holeNumber),
	))
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM holes WHERE course_id = ? AND hole_number = ?)`,
		courseID, holeNumber,
	).Scan(&exists)
	if err == nil && !exists {
		err = fmt.Errorf("storage: course %s hole %d: %w", courseID, holeNumber, ErrNotFound)
	}
	if err == nil {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO hole_notes (course_id, hole_number, text) VALUES (?, ?, ?)`,
			courseID, holeNumber, text,
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add note failed")
		return fmt.Errorf("storage: add note: %w", err)
	}
	return nil
}

// CourseStats summarises the finished rounds played on the course.
func (s *Store) CourseStats(ctx context.Context, courseID string) (golf.CourseStats, error) {
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return golf.CourseStats{}, err
	}
	rounds, err := s.Rounds(ctx, courseID)
	if err != nil {
		return golf.CourseStats{}, err
	}
	return golf.Summarize(course, rounds), nil
}
