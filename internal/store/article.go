package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"cadastro/internal/logging"
)

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "Rascunho"
	StatusPublished ArticleStatus = "Publicado"
	StatusPaused    ArticleStatus = "Pausado"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusPaused
}

const (
	maxTitleLen   = 256
	maxContentLen = 2048

	createArticleTable = `
	CREATE TABLE IF NOT EXISTS artigo (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo TEXT NOT NULL UNIQUE,
		conteudo TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Rascunho',
		usuario_id INTEGER NOT NULL,
		categoria_id INTEGER NOT NULL,
		qtde_visualizacoes INTEGER NOT NULL DEFAULT 0,
		data_cadastro TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		data_atualizacao TIMESTAMP,
		data_publicacao TIMESTAMP,
		data_pausa TIMESTAMP
	)`

	selectArticleColumns = `
	SELECT a.id, a.titulo, a.conteudo, a.status, a.usuario_id, a.categoria_id,
		COALESCE(c.nome, ''), COALESCE(u.nome, ''), a.qtde_visualizacoes,
		a.data_cadastro, a.data_atualizacao, a.data_publicacao, a.data_pausa
	FROM artigo a
	LEFT JOIN categoria c ON c.id = a.categoria_id
	LEFT JOIN usuario u ON u.id = a.usuario_id`
)

// Article is one row of the artigo table. CategoryName and AuthorName are
// filled from joins on read and ignored on write.
type Article struct {
	ID           int64
	Title        string
	Content      string
	Status       ArticleStatus
	AuthorID     int64
	CategoryID   int64
	CategoryName string
	AuthorName   string
	Views        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PublishedAt  time.Time
	PausedAt     time.Time
}

// ArticleStore persists articles. Obtain one from UserStore.Articles.
type ArticleStore struct {
	db *sql.DB
	mu *sync.Mutex
}

// CreateTable creates the artigo table if it does not exist.
func (s *ArticleStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createArticleTable); err != nil {
		return fmt.Errorf("failed to create artigo table: %w", err)
	}
	return nil
}

// Validate checks the editorial limits: a title of at least three words and
// a body of at least 64 words, within their size caps, and a category.
func (a *Article) Validate() error {
	a.Title = strings.TrimSpace(a.Title)
	switch {
	case len(strings.Fields(a.Title)) < 3:
		return errors.New("title needs at least 3 words")
	case utf8.RuneCountInString(a.Title) > maxTitleLen:
		return fmt.Errorf("title is longer than %d characters", maxTitleLen)
	case len(strings.Fields(a.Content)) < 64:
		return errors.New("content needs at least 64 words")
	case utf8.RuneCountInString(a.Content) > maxContentLen:
		return fmt.Errorf("content is longer than %d characters", maxContentLen)
	case a.CategoryID <= 0:
		return errors.New("category is required")
	}
	return nil
}

// Insert stores a as a draft and sets a.ID. Titles are unique.
func (s *ArticleStore) Insert(ctx context.Context, a *Article) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artigo (titulo, conteudo, usuario_id, categoria_id) VALUES (?, ?, ?, ?)`,
		a.Title, a.Content, a.AuthorID, a.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", translateErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	a.ID = id
	a.Status = StatusDraft
	logging.StoreDebug("Inserted article id=%d", id)
	return id, nil
}

// Update replaces title, content and category and stamps data_atualizacao.
func (s *ArticleStore) Update(ctx context.Context, a *Article) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE artigo SET titulo = ?, conteudo = ?, categoria_id = ?, data_atualizacao = CURRENT_TIMESTAMP WHERE id = ?`,
		a.Title, a.Content, a.CategoryID, a.ID)
	if err != nil {
		return fmt.Errorf("update article %d: %w", a.ID, translateErr(err))
	}
	return expectOneRow(res)
}

// SetStatus moves an article between draft, published and paused. Publishing
// stamps data_publicacao and pausing stamps data_pausa.
func (s *ArticleStore) SetStatus(ctx context.Context, id int64, status ArticleStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid article status %q", status)
	}

	query := `UPDATE artigo SET status = ? WHERE id = ?`
	switch status {
	case StatusPublished:
		query = `UPDATE artigo SET status = ?, data_publicacao = CURRENT_TIMESTAMP WHERE id = ?`
	case StatusPaused:
		query = `UPDATE artigo SET status = ?, data_pausa = CURRENT_TIMESTAMP WHERE id = ?`
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("set article %d status: %w", id, err)
	}
	return expectOneRow(res)
}

// IncrementViews adds one to the view counter.
func (s *ArticleStore) IncrementViews(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE artigo SET qtde_visualizacoes = qtde_visualizacoes + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("count view of article %d: %w", id, err)
	}
	return expectOneRow(res)
}

// Delete removes the article with the given id.
func (s *ArticleStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM artigo WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete article %d: %w", id, err)
	}
	return expectOneRow(res)
}

// GetByID returns the article with the given id in any status.
func (s *ArticleStore) GetByID(ctx context.Context, id int64) (*Article, error) {
	return scanArticle(s.db.QueryRowContext(ctx, selectArticleColumns+" WHERE a.id = ?", id))
}

// List returns every article ordered by title.
func (s *ArticleStore) List(ctx context.Context) ([]Article, error) {
	return s.query(ctx, selectArticleColumns+" ORDER BY a.titulo")
}

// ListPublished returns published articles, newest publication first.
func (s *ArticleStore) ListPublished(ctx context.Context) ([]Article, error) {
	return s.query(ctx, selectArticleColumns+" WHERE a.status = ? ORDER BY a.data_publicacao DESC, a.id DESC",
		string(StatusPublished))
}

// Count returns the number of articles.
func (s *ArticleStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artigo`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func (s *ArticleStore) query(ctx context.Context, q string, args ...interface{}) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanArticle(row rowScanner) (*Article, error) {
	var (
		a                                   Article
		status                              string
		created, updated, published, paused sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Title, &a.Content, &status, &a.AuthorID, &a.CategoryID,
		&a.CategoryName, &a.AuthorName, &a.Views,
		&created, &updated, &published, &paused)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}
	a.Status = ArticleStatus(status)
	a.CreatedAt = created.Time
	a.UpdatedAt = updated.Time
	a.PublishedAt = published.Time
	a.PausedAt = paused.Time
	return &a, nil
}
