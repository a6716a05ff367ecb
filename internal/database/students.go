package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gradebot/internal/models"
)

const pqUniqueViolation = "23505"

// StudentRepo persists student records and their course references.
type StudentRepo struct {
	db *DB
}

func NewStudentRepo(db *DB) *StudentRepo {
	return &StudentRepo{db: db}
}

const studentColumns = "id, chat_id, surname, name, patronymic, group_code, github, courses, created_at, updated_at"

func scanStudent(row interface{ Scan(...any) error }) (*models.Student, error) {
	var s models.Student
	var courses []byte

	err := row.Scan(
		&s.ID, &s.ChatID, &s.Surname, &s.Name, &s.Patronymic,
		&s.GroupCode, &s.GitHub, &courses, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(courses, &s.Courses); err != nil {
		return nil, fmt.Errorf("failed to decode courses: %w", err)
	}
	return &s, nil
}

// GetByChat returns the student owning the chat, or ErrNotFound.
func (r *StudentRepo) GetByChat(ctx context.Context, chatID int64) (*models.Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+` FROM students WHERE chat_id = $1
	`, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student by chat: %w", err)
	}
	return s, nil
}

// Create inserts a new student. A violation of the identity or chat-id
// uniqueness constraints maps to ErrDuplicateStudent.
func (r *StudentRepo) Create(ctx context.Context, s *models.Student) error {
	courses, err := json.Marshal(coursesOrEmpty(s.Courses))
	if err != nil {
		return fmt.Errorf("failed to encode courses: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO students (chat_id, surname, name, patronymic, group_code, github, courses)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, s.ChatID, s.Surname, s.Name, s.Patronymic, s.GroupCode, s.GitHub, courses).Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateStudent
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// Update rewrites all mutable columns of an existing student.
func (r *StudentRepo) Update(ctx context.Context, s *models.Student) error {
	courses, err := json.Marshal(coursesOrEmpty(s.Courses))
	if err != nil {
		return fmt.Errorf("failed to encode courses: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE students
		SET surname = $1, name = $2, patronymic = $3, group_code = $4,
		    github = $5, courses = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
	`, s.Surname, s.Name, s.Patronymic, s.GroupCode, s.GitHub, courses, s.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateStudent
		}
		return fmt.Errorf("failed to update student: %w", err)
	}
	return nil
}

// ByGroup returns the group's students ordered by surname and name.
func (r *StudentRepo) ByGroup(ctx context.Context, group string) ([]models.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE group_code = $1
		ORDER BY surname, name
	`, group)
	if err != nil {
		return nil, fmt.Errorf("failed to list students by group: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// Groups returns the distinct group codes present in the registry, sorted.
func (r *StudentRepo) Groups(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT group_code FROM students ORDER BY group_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// DeleteByID removes one student. Deleting an absent id maps to ErrNotFound.
func (r *StudentRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes every student whose group code matches.
func (r *StudentRepo) DeleteGroup(ctx context.Context, group string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE group_code = $1`, group)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func coursesOrEmpty(c []models.CourseRef) []models.CourseRef {
	if c == nil {
		return []models.CourseRef{}
	}
	return c
}
