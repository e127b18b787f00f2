package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/fsutil"
	"github.com/rileyhilliard/gitacct/internal/gitconfig"
	"github.com/rileyhilliard/gitacct/internal/model"
	"github.com/rileyhilliard/gitacct/internal/project"
)

// ProjectInput describes a project to register.
type ProjectInput struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	AccountID  *int64 `json:"account_id,omitempty"`
	RemoteURL  string `json:"remote_url,omitempty"`
	RemoteName string `json:"remote_name,omitempty"`
}

// ProjectUpdate changes the non-nil fields of a project.
type ProjectUpdate struct {
	Name         *string `json:"name,omitempty"`
	Path         *string `json:"path,omitempty"`
	AccountID    *int64  `json:"account_id,omitempty"`
	ClearAccount bool    `json:"clear_account,omitempty"`
	RemoteURL    *string `json:"remote_url,omitempty"`
	RemoteName   *string `json:"remote_name,omitempty"`
}

// ScanResult reports what ScanProjects found under a root.
type ScanResult struct {
	Root     string          `json:"root"`
	Found    []string        `json:"found"`
	Added    []model.Project `json:"added"`
	Existing []string        `json:"existing"`
}

// CreateProject registers a project. The path is made absolute; the name
// defaults to the directory name and the remote URL to the repository's.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*model.Project, error) {
	path, err := absPath(in.Path)
	if err != nil {
		return nil, err
	}

	p := &model.Project{
		Name:       strings.TrimSpace(in.Name),
		Path:       path,
		AccountID:  in.AccountID,
		RemoteURL:  strings.TrimSpace(in.RemoteURL),
		RemoteName: strings.TrimSpace(in.RemoteName),
	}
	if p.Name == "" {
		p.Name = filepath.Base(path)
	}
	if p.RemoteURL == "" {
		p.RemoteName, p.RemoteURL = detectRemote(path, p.RemoteName)
	}

	if err := s.Store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	s.log().Info("registered project %q at %s", p.Name, p.Path)
	return p, nil
}

// UpdateProject applies up to project id. Moving the project or changing
// its account clears Configured.
func (s *Service) UpdateProject(ctx context.Context, id int64, up ProjectUpdate) (*model.Project, error) {
	p, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if up.Name != nil {
		name := strings.TrimSpace(*up.Name)
		if name == "" {
			return nil, errors.New(errors.ErrInvalid, "A project needs a name", "")
		}
		p.Name = name
	}
	if up.Path != nil {
		path, err := absPath(*up.Path)
		if err != nil {
			return nil, err
		}
		if path != p.Path {
			p.Path = path
			p.Configured = false
		}
	}
	switch {
	case up.ClearAccount:
		if p.AccountID != nil {
			p.AccountID = nil
			p.Configured = false
		}
	case up.AccountID != nil:
		if p.AccountID == nil || *p.AccountID != *up.AccountID {
			p.AccountID = up.AccountID
			p.Configured = false
		}
	}
	if up.RemoteURL != nil {
		p.RemoteURL = strings.TrimSpace(*up.RemoteURL)
	}
	if up.RemoteName != nil {
		p.RemoteName = strings.TrimSpace(*up.RemoteName)
	}

	if err := s.Store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	return s.Store.GetProject(ctx, id)
}

// FindProject looks a project up by path, then by name, then by ID.
func (s *Service) FindProject(ctx context.Context, ref string) (*model.Project, error) {
	if path, err := absPath(ref); err == nil {
		if p, err := s.Store.GetProjectByPath(ctx, path); err == nil {
			return p, nil
		}
	}

	projects, err := s.Store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == ref {
			return &projects[i], nil
		}
	}
	for i := range projects {
		if fmt.Sprint(projects[i].ID) == ref {
			return &projects[i], nil
		}
	}
	return nil, errors.New(errors.ErrNotFound,
		fmt.Sprintf("No project matches %q", ref),
		"List projects with: gitacct project list")
}

// ListProjects returns every project.
func (s *Service) ListProjects(ctx context.Context) ([]model.Project, error) {
	return s.Store.ListProjects(ctx)
}

// DeleteProject forgets a project. The repository is not touched.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	return s.Store.DeleteProject(ctx, id)
}

// ConfigureProject binds a project to an account and rewrites its git
// config. accountID overrides the project's current account when set.
func (s *Service) ConfigureProject(ctx context.Context, id int64, accountID *int64) (*model.Project, error) {
	var out *model.Project
	err := s.withLock(ctx, "project configure", func() error {
		p, err := s.Store.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if accountID != nil {
			p.AccountID = accountID
		}
		if p.AccountID == nil {
			return errors.New(errors.ErrInvalid,
				fmt.Sprintf("Project %q has no account", p.Name),
				"Pick one with: gitacct project configure --account <name>")
		}
		acct, err := s.Store.GetAccount(ctx, *p.AccountID)
		if err != nil {
			return err
		}
		if !acct.HasKey() {
			return errors.New(errors.ErrInvalid,
				fmt.Sprintf("Account %q has no SSH key, so it has no host alias to point the remote at", acct.Name),
				"Give it a key with: gitacct account update --key <path>")
		}

		configured, err := s.Configurator.Configure(ctx, *p, *acct)
		if err != nil {
			return err
		}
		if err := s.Store.UpdateProject(ctx, &configured); err != nil {
			return err
		}
		out = &configured
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateProject compares a project's repository with its account.
func (s *Service) ValidateProject(ctx context.Context, id int64) (*model.ValidationReport, error) {
	p, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, *p)
}

// ValidateAll validates every project, in project order.
func (s *Service) ValidateAll(ctx context.Context) ([]model.ValidationReport, error) {
	return validateAll(ctx, s.Store, s.validate)
}

func validateAll(ctx context.Context, lister ProjectLister, one func(context.Context, model.Project) (*model.ValidationReport, error)) ([]model.ValidationReport, error) {
	projects, err := lister.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]model.ValidationReport, 0, len(projects))
	for _, p := range projects {
		r, err := one(ctx, p)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

func (s *Service) validate(ctx context.Context, p model.Project) (*model.ValidationReport, error) {
	var acct *model.Account
	if p.AccountID != nil {
		a, err := s.Store.GetAccount(ctx, *p.AccountID)
		if err != nil && !errors.IsCode(err, errors.ErrNotFound) {
			return nil, err
		}
		acct = a
	}
	report := s.Validator.Validate(p, acct)
	return &report, nil
}

// ScanProjects finds repositories under root. With register set, the ones
// not yet known are added as projects without an account.
func (s *Service) ScanProjects(ctx context.Context, root string, maxDepth int, register bool) (*ScanResult, error) {
	found, err := project.Scan(root, maxDepth)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Root: root, Found: found}
	for _, path := range found {
		if _, err := s.Store.GetProjectByPath(ctx, path); err == nil {
			res.Existing = append(res.Existing, path)
			continue
		} else if !errors.IsCode(err, errors.ErrNotFound) {
			return nil, err
		}
		if !register {
			continue
		}
		p, err := s.CreateProject(ctx, ProjectInput{Path: path})
		if err != nil {
			return nil, err
		}
		res.Added = append(res.Added, *p)
	}
	return res, nil
}

func absPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New(errors.ErrInvalid, "A project needs a path", "")
	}
	abs, err := filepath.Abs(fsutil.ExpandHome(path))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrInvalid,
			fmt.Sprintf("Couldn't resolve %s", path), "")
	}
	return abs, nil
}

// detectRemote reads the remote a new project should start from. Errors
// leave the fields empty; Configure reports them later.
func detectRemote(path, name string) (string, string) {
	remotes, err := gitconfig.Remotes(path)
	if err != nil || len(remotes) == 0 {
		return name, ""
	}
	for _, r := range remotes {
		if r.Name == name || (name == "" && r.Name == project.DefaultRemoteName) {
			return r.Name, r.URL
		}
	}
	if name == "" {
		return remotes[0].Name, remotes[0].URL
	}
	return name, ""
}
