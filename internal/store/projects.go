package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rileyhilliard/gitacct/internal/model"
)

var errNoRows = sql.ErrNoRows

// CreateProject inserts p and fills in its ID and timestamps.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	row := projectToRow(*p)
	row.ID = 0
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return mapErr(err, fmt.Sprintf("project at %s", p.Path))
	}
	p.ID = row.ID
	return nil
}

// UpdateProject writes every field of p except CreatedAt.
func (s *Store) UpdateProject(ctx context.Context, p *model.Project) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(projectToRow(*p)).
		ExcludeColumn("created_at").WherePK().Exec(ctx)
	if err != nil {
		return mapErr(err, fmt.Sprintf("project %q", p.Name))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapErr(errNoRows, fmt.Sprintf("project %d", p.ID))
	}
	return nil
}

// GetProject returns the project with id.
func (s *Store) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var row projectRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, mapErr(err, fmt.Sprintf("project %d", id))
	}
	p := projectFromRow(row)
	return &p, nil
}

// GetProjectByPath returns the project registered at path.
func (s *Store) GetProjectByPath(ctx context.Context, path string) (*model.Project, error) {
	var row projectRow
	if err := s.db.NewSelect().Model(&row).Where("path = ?", path).Scan(ctx); err != nil {
		return nil, mapErr(err, fmt.Sprintf("project at %s", path))
	}
	p := projectFromRow(row)
	return &p, nil
}

// ListProjects returns every project in creation order.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	var rows []projectRow
	if err := s.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, mapErr(err, "projects")
	}
	out := make([]model.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, projectFromRow(r))
	}
	return out, nil
}

// ListProjectsForAccount returns the projects bound to an account.
func (s *Store) ListProjectsForAccount(ctx context.Context, accountID int64) ([]model.Project, error) {
	var rows []projectRow
	if err := s.db.NewSelect().Model(&rows).Where("account_id = ?", accountID).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, mapErr(err, "projects")
	}
	out := make([]model.Project, 0, len(rows))
	for _, r := range rows {
		out = append(out, projectFromRow(r))
	}
	return out, nil
}

// DeleteProject removes a project record. The repository is not touched.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*projectRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err, fmt.Sprintf("project %d", id))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return mapErr(errNoRows, fmt.Sprintf("project %d", id))
	}
	return nil
}
