package db

import (
	"context"

	"github.com/acainfo/backend/internal/model"
)

func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS students (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			major TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS teachers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			phone_number TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const studentColumns = `id, name, last_name, email, password_hash, phone_number, major, is_active, registered_at, updated_at`

func (db *Postgres) FindStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE email = $1`
	return db.scanStudent(ctx, query, email)
}

func (db *Postgres) FindStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	return db.scanStudent(ctx, query, id)
}

func (db *Postgres) ExistsStudentByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (db *Postgres) CreateStudent(ctx context.Context, s *model.Student) (*model.Student, error) {
	query := `
		INSERT INTO students (name, last_name, email, password_hash, phone_number, major, is_active, registered_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + studentColumns
	return db.scanStudent(ctx, query, s.Name, s.LastName, s.Email, s.PasswordHash, s.PhoneNumber, s.Major, s.Active)
}

func (db *Postgres) scanStudent(ctx context.Context, query string, args ...any) (*model.Student, error) {
	var s model.Student
	err := db.Pool.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.Name,
		&s.LastName,
		&s.Email,
		&s.PasswordHash,
		&s.PhoneNumber,
		&s.Major,
		&s.Active,
		&s.RegisteredAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

const teacherColumns = `id, name, email, password_hash, phone_number, is_admin, registered_at`

func (db *Postgres) FindTeacherByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE email = $1`
	return db.scanTeacher(ctx, query, email)
}

func (db *Postgres) FindTeacherByID(ctx context.Context, id int64) (*model.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1`
	return db.scanTeacher(ctx, query, id)
}

func (db *Postgres) ExistsTeacherByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teachers WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (db *Postgres) CreateTeacher(ctx context.Context, t *model.Teacher) (*model.Teacher, error) {
	query := `
		INSERT INTO teachers (name, email, password_hash, phone_number, is_admin, registered_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + teacherColumns
	return db.scanTeacher(ctx, query, t.Name, t.Email, t.PasswordHash, t.PhoneNumber, t.IsAdmin)
}

func (db *Postgres) scanTeacher(ctx context.Context, query string, args ...any) (*model.Teacher, error) {
	var t model.Teacher
	err := db.Pool.QueryRow(ctx, query, args...).Scan(
		&t.ID,
		&t.Name,
		&t.Email,
		&t.PasswordHash,
		&t.PhoneNumber,
		&t.IsAdmin,
		&t.RegisteredAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}
