package postgres

import (
	"context"
	"fmt"

	"game-deal-tracker/internal/domain"
	"game-deal-tracker/internal/storage"
)

// TitleStore implements storage.TitleStore using PostgreSQL.
// Aliases live in title_aliases with a global uniqueness constraint; the
// serial id preserves insertion order.
type TitleStore struct {
	pool *Pool
}

// NewTitleStore creates a new TitleStore.
func NewTitleStore(pool *Pool) *TitleStore {
	return &TitleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TitleStore = (*TitleStore)(nil)

// Insert adds a new title with its initial alias set.
func (s *TitleStore) Insert(ctx context.Context, t *domain.Title) error {
	if t == nil || t.TitleID == "" || t.DisplayName == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert title: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO titles (title_id, display_name, created_at)
		VALUES ($1, $2, $3)
	`, t.TitleID, t.DisplayName, t.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert title: %w", err)
	}

	for _, alias := range t.Aliases {
		_, err = tx.Exec(ctx, `
			INSERT INTO title_aliases (alias, title_id)
			VALUES ($1, $2)
		`, alias, t.TitleID)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert alias %q: %w", alias, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert title: %w", err)
	}
	return nil
}

// GetByID retrieves a title by its ID. Returns ErrNotFound if not exists.
func (s *TitleStore) GetByID(ctx context.Context, titleID string) (*domain.Title, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT title_id, display_name, created_at
		FROM titles
		WHERE title_id = $1
	`, titleID)

	var t domain.Title
	if err := row.Scan(&t.TitleID, &t.DisplayName, &t.CreatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get title by id: %w", err)
	}

	aliases, err := s.aliasesFor(ctx, titleID)
	if err != nil {
		return nil, err
	}
	t.Aliases = aliases
	return &t, nil
}

// GetAll retrieves every title, ordered by created_at ASC.
func (s *TitleStore) GetAll(ctx context.Context) ([]*domain.Title, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT title_id, display_name, created_at
		FROM titles
		ORDER BY created_at ASC, title_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get all titles: %w", err)
	}
	defer rows.Close()

	var titles []*domain.Title
	byID := make(map[string]*domain.Title)
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.TitleID, &t.DisplayName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan title row: %w", err)
		}
		titles = append(titles, &t)
		byID[t.TitleID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title rows: %w", err)
	}

	aliasRows, err := s.pool.Query(ctx, `
		SELECT alias, title_id
		FROM title_aliases
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("get all aliases: %w", err)
	}
	defer aliasRows.Close()

	for aliasRows.Next() {
		var alias, titleID string
		if err := aliasRows.Scan(&alias, &titleID); err != nil {
			return nil, fmt.Errorf("scan alias row: %w", err)
		}
		if t, ok := byID[titleID]; ok {
			t.Aliases = append(t.Aliases, alias)
		}
	}
	if err := aliasRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alias rows: %w", err)
	}

	return titles, nil
}

// AddAlias binds an additional alias to a title. No-op if the alias is
// already bound to that title; ErrDuplicateKey if bound to a different one.
func (s *TitleStore) AddAlias(ctx context.Context, titleID, alias string) error {
	if titleID == "" || alias == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO title_aliases (alias, title_id)
		VALUES ($1, $2)
		ON CONFLICT (alias) DO NOTHING
	`, alias, titleID)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("add alias: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Conflict: the alias exists, find out for whom.
	var owner string
	err = s.pool.QueryRow(ctx, `
		SELECT title_id FROM title_aliases WHERE alias = $1
	`, alias).Scan(&owner)
	if err != nil {
		return fmt.Errorf("resolve alias owner: %w", err)
	}
	if owner == titleID {
		return nil
	}
	return storage.ErrDuplicateKey
}

// Merge moves every alias of srcID onto dstID. The source title record is
// retained but no longer owns any alias.
func (s *TitleStore) Merge(ctx context.Context, dstID, srcID string) error {
	if dstID == "" || srcID == "" || dstID == srcID {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM titles WHERE title_id IN ($1, $2)
	`, dstID, srcID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check merge titles: %w", err)
	}
	if n != 2 {
		return storage.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE title_aliases SET title_id = $1 WHERE title_id = $2
	`, dstID, srcID)
	if err != nil {
		return fmt.Errorf("merge aliases: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}
	return nil
}

// aliasesFor returns a title's aliases in insertion order.
func (s *TitleStore) aliasesFor(ctx context.Context, titleID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT alias FROM title_aliases
		WHERE title_id = $1
		ORDER BY id ASC
	`, titleID)
	if err != nil {
		return nil, fmt.Errorf("get aliases: %w", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}
