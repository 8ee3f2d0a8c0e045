package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/acainfo/backend/internal/db"
	"github.com/acainfo/backend/internal/model"
)

const identitySeparator = "_"

// StudentReader and TeacherReader are the lookup contracts of the persistence
// layer. Lookups report a missing record as db.ErrNotFound.
type StudentReader interface {
	FindStudentByEmail(ctx context.Context, email string) (*model.Student, error)
	FindStudentByID(ctx context.Context, id int64) (*model.Student, error)
	ExistsStudentByEmail(ctx context.Context, email string) (bool, error)
}

type TeacherReader interface {
	FindTeacherByEmail(ctx context.Context, email string) (*model.Teacher, error)
	FindTeacherByID(ctx context.Context, id int64) (*model.Teacher, error)
	ExistsTeacherByEmail(ctx context.Context, email string) (bool, error)
}

// PrincipalResolver merges students and teachers into AuthPrincipal values.
type PrincipalResolver struct {
	students StudentReader
	teachers TeacherReader
}

func NewPrincipalResolver(students StudentReader, teachers TeacherReader) *PrincipalResolver {
	return &PrincipalResolver{students: students, teachers: teachers}
}

// ResolveByEmail looks in students first, then teachers. A student always wins
// if both somehow share an email.
func (r *PrincipalResolver) ResolveByEmail(ctx context.Context, email string) (*model.AuthPrincipal, error) {
	student, err := r.students.FindStudentByEmail(ctx, email)
	if err == nil {
		return StudentPrincipal(student), nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("find student by email: %w", err)
	}

	teacher, err := r.teachers.FindTeacherByEmail(ctx, email)
	if err == nil {
		return TeacherPrincipal(teacher), nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("find teacher by email: %w", err)
	}

	return nil, ErrPrincipalNotFound
}

func (r *PrincipalResolver) ResolveByIdentity(ctx context.Context, identity string) (*model.AuthPrincipal, error) {
	kind, id, err := ParseIdentity(identity)
	if err != nil {
		return nil, err
	}

	switch kind {
	case model.KindStudent:
		student, err := r.students.FindStudentByID(ctx, id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrPrincipalNotFound, identity)
			}
			return nil, fmt.Errorf("find student by id: %w", err)
		}
		return StudentPrincipal(student), nil
	default:
		teacher, err := r.teachers.FindTeacherByID(ctx, id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrPrincipalNotFound, identity)
			}
			return nil, fmt.Errorf("find teacher by id: %w", err)
		}
		return TeacherPrincipal(teacher), nil
	}
}

// EmailTaken reports whether either source already holds email.
func (r *PrincipalResolver) EmailTaken(ctx context.Context, email string) (bool, error) {
	exists, err := r.students.ExistsStudentByEmail(ctx, email)
	if err != nil || exists {
		return exists, err
	}
	return r.teachers.ExistsTeacherByEmail(ctx, email)
}

func FormatIdentity(kind model.PrincipalKind, id int64) string {
	return string(kind) + identitySeparator + strconv.FormatInt(id, 10)
}

// ParseIdentity splits "<KIND>_<id>". The id must be a positive integer in
// canonical decimal form.
func ParseIdentity(identity string) (model.PrincipalKind, int64, error) {
	parts := strings.Split(identity, identitySeparator)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentity, identity)
	}

	kind := model.PrincipalKind(parts[0])
	if kind != model.KindStudent && kind != model.KindTeacher {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownIdentityKind, parts[0])
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentity, identity)
	}
	// Only the canonical spelling is accepted: no sign, no leading zeros.
	if FormatIdentity(kind, id) != identity {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedIdentity, identity)
	}
	return kind, id, nil
}

func StudentPrincipal(s *model.Student) *model.AuthPrincipal {
	return &model.AuthPrincipal{
		Identity:     FormatIdentity(model.KindStudent, s.ID),
		Email:        s.Email,
		DisplayName:  strings.TrimSpace(s.Name + " " + s.LastName),
		PasswordHash: s.PasswordHash,
		Kind:         model.KindStudent,
		Roles:        RolesFor(model.KindStudent, false),
		Active:       s.Active,
	}
}

// TeacherPrincipal is always active: teachers carry no active flag.
func TeacherPrincipal(t *model.Teacher) *model.AuthPrincipal {
	return &model.AuthPrincipal{
		Identity:     FormatIdentity(model.KindTeacher, t.ID),
		Email:        t.Email,
		DisplayName:  t.Name,
		PasswordHash: t.PasswordHash,
		Kind:         model.KindTeacher,
		Roles:        RolesFor(model.KindTeacher, t.IsAdmin),
		Active:       true,
	}
}

func RolesFor(kind model.PrincipalKind, isAdmin bool) []model.Role {
	if kind == model.KindStudent {
		return []model.Role{model.RoleStudent}
	}
	if isAdmin {
		return []model.Role{model.RoleTeacher, model.RoleAdmin}
	}
	return []model.Role{model.RoleTeacher}
}
