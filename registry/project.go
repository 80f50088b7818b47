package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrProjectNotFound is returned when an operation targets a project
// that does not exist.
type ErrProjectNotFound struct {
	ID int64
}

func (e *ErrProjectNotFound) Error() string {
	return fmt.Sprintf("registry: project not found: %d", e.ID)
}

// CreateProject inserts a project and returns its ID. Names are unique;
// a duplicate name surfaces as an error from the unique constraint.
func (s *Store) CreateProject(ctx context.Context, name, language, description string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO projects (name, language, description, created_at)
		VALUES (?,?,?,?)`,
		name, language, description, time.Now().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return 0, fmt.Errorf("registry: project name %q already exists", name)
		}
		return 0, fmt.Errorf("registry: create project: %w", err)
	}
	return res.LastInsertId()
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	p := &Project{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, language, COALESCE(description, ''), created_at
		FROM projects WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &p.Language, &p.Description, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrProjectNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, language, COALESCE(description, ''), created_at
		FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("registry: list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Language, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and all its documents in one
// transaction, returning the file paths of the deleted documents so the
// caller can remove them from disk best-effort. A failure mid-way rolls
// everything back.
func (s *Store) DeleteProject(ctx context.Context, id int64) ([]string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT file_path, COALESCE(processed_markdown_path, ''), COALESCE(processed_html_path, '')
		FROM documents WHERE project_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("registry: collect paths: %w", err)
	}
	var paths []string
	for rows.Next() {
		var orig, md, html string
		if err := rows.Scan(&orig, &md, &html); err != nil {
			rows.Close()
			return nil, err
		}
		for _, p := range []string{orig, md, html} {
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE project_id = ?`, id); err != nil {
		return nil, fmt.Errorf("registry: delete documents: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("registry: delete project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, &ErrProjectNotFound{ID: id}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("registry: commit: %w", err)
	}
	return paths, nil
}
