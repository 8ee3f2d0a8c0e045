package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/acainfo/backend/internal/db"
	"github.com/acainfo/backend/internal/model"
	"golang.org/x/crypto/bcrypt"
)

var errBackend = errors.New("backend down")

type fakeDirectory struct {
	mu       sync.Mutex
	students map[int64]*model.Student
	teachers map[int64]*model.Teacher
	nextID   int64
	err      error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		students: map[int64]*model.Student{},
		teachers: map[int64]*model.Teacher{},
	}
}

func (f *fakeDirectory) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDirectory) FindStudentByEmail(ctx context.Context, email string) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.students {
		if strings.EqualFold(s.Email, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeDirectory) FindStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.students[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDirectory) ExistsStudentByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindStudentByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeDirectory) CreateStudent(ctx context.Context, s *model.Student) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	cp := *s
	cp.ID = f.nextID
	cp.RegisteredAt = time.Now()
	cp.UpdatedAt = cp.RegisteredAt
	f.students[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeDirectory) FindTeacherByEmail(ctx context.Context, email string) (*model.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.teachers {
		if strings.EqualFold(t.Email, email) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeDirectory) FindTeacherByID(ctx context.Context, id int64) (*model.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.teachers[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeDirectory) ExistsTeacherByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindTeacherByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeDirectory) CreateTeacher(ctx context.Context, t *model.Teacher) (*model.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	cp := *t
	cp.ID = f.nextID
	cp.RegisteredAt = time.Now()
	f.teachers[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeDirectory) setStudentActive(id int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.students[id].Active = active
}

func (f *fakeDirectory) deleteStudent(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.students, id)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func (f *fakeDirectory) addStudent(t *testing.T, id int64, email, password string, active bool) *model.Student {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &model.Student{
		ID:           id,
		Name:         "Ana",
		LastName:     "García",
		Email:        email,
		PasswordHash: mustHash(t, password),
		Major:        "ING_INF",
		Active:       active,
	}
	f.students[id] = s
	if id > f.nextID {
		f.nextID = id
	}
	return s
}

func (f *fakeDirectory) addTeacher(t *testing.T, id int64, email, password string, isAdmin bool) *model.Teacher {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	tc := &model.Teacher{
		ID:           id,
		Name:         "Luis Pérez",
		Email:        email,
		PasswordHash: mustHash(t, password),
		IsAdmin:      isAdmin,
	}
	f.teachers[id] = tc
	if id > f.nextID {
		f.nextID = id
	}
	return tc
}

// failingStore is a revocation store whose backend is unreachable.
type failingStore struct{}

func (failingStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	return errBackend
}

func (failingStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	return false, errBackend
}

func (failingStore) Clear(ctx context.Context) error {
	return errBackend
}
