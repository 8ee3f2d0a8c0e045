package db

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/acainfo/backend/internal/config"
	"github.com/acainfo/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres opens a pool on TEST_DATABASE_URL inside a throwaway schema.
// Tests using it are skipped when the variable is unset.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := NewPostgresPool(ctx, config.PostgresConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	schema := "auth_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
	})

	poolCfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	poolCfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	pg := &Postgres{Pool: pool}
	require.NoError(t, pg.EnsureAuthSchema(ctx))
	require.NoError(t, pg.EnsureAuthSchema(ctx))
	return pg
}

func TestStudentLookups(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()

	created, err := pg.CreateStudent(ctx, &model.Student{
		Name:         "Ana",
		LastName:     "García",
		Email:        "ana@test.local",
		PasswordHash: "hash",
		Major:        "ING_INF",
		Active:       true,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.False(t, created.RegisteredAt.IsZero())

	byEmail, err := pg.FindStudentByEmail(ctx, "ana@test.local")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "García", byEmail.LastName)
	assert.True(t, byEmail.Active)

	byID, err := pg.FindStudentByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@test.local", byID.Email)

	exists, err := pg.ExistsStudentByEmail(ctx, "ana@test.local")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = pg.ExistsStudentByEmail(ctx, "nobody@test.local")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = pg.FindStudentByEmail(ctx, "nobody@test.local")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = pg.FindStudentByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = pg.CreateStudent(ctx, &model.Student{Name: "Dup", LastName: "Dup", Email: "ana@test.local", PasswordHash: "hash"})
	assert.True(t, IsUniqueViolation(err))
}

func TestTeacherLookups(t *testing.T) {
	pg := newTestPostgres(t)
	ctx := context.Background()

	created, err := pg.CreateTeacher(ctx, &model.Teacher{
		Name:         "Luis Pérez",
		Email:        "luis@test.local",
		PasswordHash: "hash",
		IsAdmin:      true,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	byEmail, err := pg.FindTeacherByEmail(ctx, "luis@test.local")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.True(t, byEmail.IsAdmin)

	byID, err := pg.FindTeacherByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luis Pérez", byID.Name)

	exists, err := pg.ExistsTeacherByEmail(ctx, "luis@test.local")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = pg.FindTeacherByEmail(ctx, "nobody@test.local")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = pg.FindTeacherByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = pg.CreateTeacher(ctx, &model.Teacher{Name: "Dup", Email: "luis@test.local", PasswordHash: "hash"})
	assert.True(t, IsUniqueViolation(err))
}
