package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cadastro/internal/logging"
)

const (
	createCategoryTable = `
	CREATE TABLE IF NOT EXISTS categoria (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nome TEXT NOT NULL UNIQUE,
		descricao TEXT,
		data_cadastro TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		data_atualizacao TIMESTAMP
	)`

	selectCategoryColumns = `
	SELECT id, nome, descricao, data_cadastro, data_atualizacao
	FROM categoria`
)

// Category groups articles on the blog.
type Category struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryStore persists categories. Obtain one from UserStore.Categories.
type CategoryStore struct {
	db *sql.DB
	mu *sync.Mutex
}

// CreateTable creates the categoria table if it does not exist.
func (s *CategoryStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createCategoryTable); err != nil {
		return fmt.Errorf("failed to create categoria table: %w", err)
	}
	return nil
}

// Insert stores c and sets c.ID. Names are unique.
func (s *CategoryStore) Insert(ctx context.Context, c *Category) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return 0, errors.New("category name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categoria (nome, descricao) VALUES (?, ?)`,
		c.Name, nullable(c.Description))
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", translateErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	c.ID = id
	logging.StoreDebug("Inserted category id=%d", id)
	return id, nil
}

// Update renames c and replaces its description.
func (s *CategoryStore) Update(ctx context.Context, c *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE categoria SET nome = ?, descricao = ?, data_atualizacao = CURRENT_TIMESTAMP WHERE id = ?`,
		c.Name, nullable(c.Description), c.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, translateErr(err))
	}
	return expectOneRow(res)
}

// Delete removes the category with the given id.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM categoria WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return expectOneRow(res)
}

// GetByID returns the category with the given id.
func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, selectCategoryColumns+" WHERE id = ?", id))
}

// GetByName returns the category with exactly this name.
func (s *CategoryStore) GetByName(ctx context.Context, name string) (*Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, selectCategoryColumns+" WHERE nome = ?", name))
}

// List returns every category ordered by name.
func (s *CategoryStore) List(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, selectCategoryColumns+" ORDER BY nome")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCategory(row rowScanner) (*Category, error) {
	var (
		c       Category
		desc    sql.NullString
		created sql.NullTime
		updated sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Name, &desc, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}
	c.Description = desc.String
	c.CreatedAt = created.Time
	c.UpdatedAt = updated.Time
	return &c, nil
}
