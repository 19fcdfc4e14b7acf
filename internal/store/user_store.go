// Package store persists registered users in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cadastro/internal/logging"

	"github.com/mattn/go-sqlite3"
)

const (
	createUserTable = `
	CREATE TABLE IF NOT EXISTS usuario (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nome TEXT NOT NULL,
		cpf TEXT NOT NULL UNIQUE,
		data_nascimento TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		telefone TEXT,
		senha TEXT NOT NULL,
		perfil TEXT NOT NULL,
		data_cadastro TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	insertUser = `
	INSERT INTO usuario (nome, cpf, data_nascimento, email, telefone, senha, perfil)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectUserColumns = `
	SELECT id, nome, cpf, data_nascimento, email, telefone, senha, perfil, data_cadastro
	FROM usuario`

	updateUser = `
	UPDATE usuario
	SET nome = ?, cpf = ?, data_nascimento = ?, email = ?, telefone = ?
	WHERE id = ?`

	updatePassword = `UPDATE usuario SET senha = ? WHERE id = ?`

	deleteUser = `DELETE FROM usuario WHERE id = ?`

	countUsers = `SELECT COUNT(*) FROM usuario`
)

// UserStore is the SQLite-backed user repository. It owns the database
// connection; the category and article repositories share it.
type UserStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string

	categories *CategoryStore
	articles   *ArticleStore
}

// NewUserStore opens (creating if needed) the database at path and ensures
// the usuario, categoria and artigo tables exist.
func NewUserStore(path string) (*UserStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewUserStore")
	defer timer.Stop()

	logging.Store("Opening user store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &UserStore{db: db, dbPath: path}
	s.categories = &CategoryStore{db: db, mu: &s.mu}
	s.articles = &ArticleStore{db: db, mu: &s.mu}

	ctx := context.Background()
	for _, create := range []func(context.Context) error{
		s.CreateTable, s.categories.CreateTable, s.articles.CreateTable,
	} {
		if err := create(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTable creates the usuario table if it does not exist.
func (s *UserStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createUserTable); err != nil {
		return fmt.Errorf("failed to create usuario table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *UserStore) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *UserStore) Path() string {
	return s.dbPath
}

// Categories returns the category repository on the same database.
func (s *UserStore) Categories() *CategoryStore {
	return s.categories
}

// Articles returns the article repository on the same database.
func (s *UserStore) Articles() *ArticleStore {
	return s.articles
}

// Insert stores u and returns its new id. u.ID is set on success.
func (s *UserStore) Insert(ctx context.Context, u *User) (int64, error) {
	if u.Profile == "" {
		u.Profile = ProfileAuthor
	}
	if !u.Profile.Valid() {
		return 0, fmt.Errorf("invalid profile %q", u.Profile)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, insertUser,
		u.Name, u.CPF, u.BirthDate, u.Email, nullable(u.Phone), u.PasswordHash, string(u.Profile))
	if err != nil {
		err = translateErr(err)
		logging.StoreError("Insert user %s failed: %v", u.Email, err)
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	logging.StoreDebug("Inserted user id=%d", id)
	return id, nil
}

// GetByID returns the user with the given id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, selectUserColumns+" WHERE id = ?", id)
	return scanUser(row)
}

// GetByEmail returns the user registered with email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, selectUserColumns+" WHERE email = ?", email)
	return scanUser(row)
}

// ListPage returns users ordered by name. Pages start at 1.
func (s *UserStore) ListPage(ctx context.Context, pageSize, page int) ([]User, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}
	offset := (page - 1) * pageSize

	rows, err := s.db.QueryContext(ctx, selectUserColumns+" ORDER BY nome LIMIT ? OFFSET ?", pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update changes every field except the password and profile.
func (s *UserStore) Update(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, updateUser,
		u.Name, u.CPF, u.BirthDate, u.Email, nullable(u.Phone), u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, translateErr(err))
	}
	return expectOneRow(res)
}

// UpdatePassword replaces the stored password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, updatePassword, hash, id)
	if err != nil {
		return fmt.Errorf("update password %d: %w", id, err)
	}
	return expectOneRow(res)
}

// Delete removes the user with the given id.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return expectOneRow(res)
}

// Count returns the number of registered users.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countUsers).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u       User
		phone   sql.NullString
		profile string
		created sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.CPF, &u.BirthDate, &u.Email, &phone, &u.PasswordHash, &profile, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Phone = phone.String
	u.Profile = Profile(profile)
	if created.Valid {
		u.CreatedAt = created.Time
	}
	return &u, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// translateErr maps sqlite unique violations onto DuplicateError. The
// message reads "UNIQUE constraint failed: <table>.<column>".
func translateErr(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}
	field := ""
	msg := se.Error()
	if i := strings.LastIndex(msg, "."); i >= 0 {
		field = strings.TrimSpace(msg[i+1:])
	}
	return &DuplicateError{Field: field}
}
