package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *UserStore {
	t.Helper()
	s, err := NewUserStore(filepath.Join(t.TempDir(), "sub", "dados.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleUser(n int) *User {
	return &User{
		Name:         fmt.Sprintf("user %02d", n),
		CPF:          fmt.Sprintf("%03d.999.999-99", n),
		BirthDate:    "2000-01-01",
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "hash",
	}
}

func TestUserStore_InsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &User{
		Name:         "libertadores",
		CPF:          "999.999.999-99",
		BirthDate:    "1960-04-19",
		Email:        "example@gmail.com",
		PasswordHash: "$2a$10$hash",
	}
	id, err := s.Insert(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, ProfileAuthor, u.Profile, "empty profile defaults to AUTOR")

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())

	want := *u
	if diff := cmp.Diff(want, *got, cmpopts.IgnoreFields(User{}, "CreatedAt")); diff != "" {
		t.Errorf("GetByID mismatch (-want +got):\n%s", diff)
	}

	byEmail, err := s.GetByEmail(ctx, "example@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
}

func TestUserStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, 42), ErrNotFound)
	assert.ErrorIs(t, s.UpdatePassword(ctx, 42, "x"), ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, &User{ID: 42, Name: "x", CPF: "x", Email: "x"}), ErrNotFound)
}

func TestUserStore_Duplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, sampleUser(1))
	require.NoError(t, err)

	dupCPF := sampleUser(2)
	dupCPF.CPF = sampleUser(1).CPF
	_, err = s.Insert(ctx, dupCPF)
	require.ErrorIs(t, err, ErrDuplicate)

	var de *DuplicateError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "cpf", de.Field)

	dupEmail := sampleUser(3)
	dupEmail.Email = sampleUser(1).Email
	_, err = s.Insert(ctx, dupEmail)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "email", de.Field)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserStore_InvalidProfile(t *testing.T) {
	s := newTestStore(t)
	u := sampleUser(1)
	u.Profile = "ROOT"
	_, err := s.Insert(context.Background(), u)
	require.Error(t, err)
}

func TestUserStore_ListPage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, n := range []int{5, 3, 1, 4, 2} {
		_, err := s.Insert(ctx, sampleUser(n))
		require.NoError(t, err)
	}

	first, err := s.ListPage(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "user 01", first[0].Name)
	assert.Equal(t, "user 02", first[1].Name)

	last, err := s.ListPage(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "user 05", last[0].Name)

	empty, err := s.ListPage(ctx, 2, 4)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.ListPage(ctx, 0, 1)
	assert.Error(t, err)
	_, err = s.ListPage(ctx, 10, 0)
	assert.Error(t, err)
}

func TestUserStore_UpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := sampleUser(1)
	_, err := s.Insert(ctx, u)
	require.NoError(t, err)

	u.Name = "renamed"
	u.Phone = "+55 21 99999-0000"
	require.NoError(t, s.Update(ctx, u))
	require.NoError(t, s.UpdatePassword(ctx, u.ID, "new-hash"))

	got, err := s.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "+55 21 99999-0000", got.Phone)
	assert.Equal(t, "new-hash", got.PasswordHash)

	other := sampleUser(2)
	_, err = s.Insert(ctx, other)
	require.NoError(t, err)
	other.Email = u.Email
	assert.ErrorIs(t, s.Update(ctx, other), ErrDuplicate)

	require.NoError(t, s.Delete(ctx, u.ID))
	_, err = s.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStore_ConcurrentInserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.Insert(ctx, sampleUser(n))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestMigrations_AddCreatedAtToOldTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE usuario (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nome TEXT NOT NULL,
		cpf TEXT NOT NULL UNIQUE,
		data_nascimento TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		telefone TEXT,
		senha TEXT NOT NULL,
		perfil TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO usuario (nome, cpf, data_nascimento, email, senha, perfil)
		VALUES ('old', '000.000.000-00', '1990-01-01', 'old@example.com', 'h', 'ADMIN')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := NewUserStore(path)
	require.NoError(t, err)
	defer s.Close()

	old, err := s.GetByEmail(context.Background(), "old@example.com")
	require.NoError(t, err)
	assert.True(t, old.CreatedAt.IsZero())
	assert.Equal(t, ProfileAdmin, old.Profile)

	// Reopening is a no-op for already-applied migrations.
	require.NoError(t, runMigrations(s.db))
}

func TestUserStore_PathAndSharedRepos(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dados.db")
	s, err := NewUserStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	assert.Equal(t, path, s.Path())
	assert.Same(t, s.Categories(), s.Categories())
	assert.Same(t, s.Articles(), s.Articles())
}
