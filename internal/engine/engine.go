package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitedesk/internal/config"
	"sitedesk/internal/domain"
	"sitedesk/internal/engine/auth"
	"sitedesk/internal/events"
	"sitedesk/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.Service{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// projectConfig returns the stored config for a project, falling back to
// the engine-level config when the project has none persisted.
func (e Engine) projectConfig(ctx context.Context, projectID string) (*config.Config, error) {
	cfg, err := e.Repo.GetProjectConfig(ctx, projectID)
	if err == nil && cfg != nil {
		return cfg, nil
	}
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if e.Config != nil {
		return e.Config, nil
	}
	return nil, errors.New("config not loaded")
}

// ProjectCreateOptions are parameters for initializing a project.
type ProjectCreateOptions struct {
	ID      string
	OrgID   string
	OrgName string
	Number  string
	Name    string
	Address string
	ActorID string
}

// InitProject creates the org and project rows, persists the default
// config, seeds the RBAC catalog from it, and grants the creating actor
// the owner role.
func (e Engine) InitProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, errors.New("name is required")
	}
	if opts.OrgID == "" {
		return domain.Project{}, errors.New("org is required")
	}
	if opts.ActorID == "" {
		return domain.Project{}, errors.New("actor is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.nowRFC3339()
	p := domain.Project{
		ID:        id,
		OrgID:     opts.OrgID,
		Number:    opts.Number,
		Name:      opts.Name,
		Status:    "active",
		Address:   opts.Address,
		CreatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.EnsureOrg(ctx, tx, opts.OrgID, opts.OrgName, now); err != nil {
		return domain.Project{}, fmt.Errorf("ensure org: %w", err)
	}
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	cfg := config.Default(p.ID)
	if err := e.Repo.UpsertProjectConfigTx(ctx, tx, p.ID, cfg); err != nil {
		return domain.Project{}, fmt.Errorf("insert project config: %w", err)
	}
	if err := e.syncRBAC(ctx, tx, cfg); err != nil {
		return domain.Project{}, fmt.Errorf("seed rbac: %w", err)
	}
	if err := e.Repo.EnsureActor(ctx, tx, opts.ActorID, now); err != nil {
		return domain.Project{}, err
	}
	if err := e.Repo.AssignRole(ctx, tx, p.ID, opts.ActorID, "owner"); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectCreated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{
		"name":   p.Name,
		"org_id": p.OrgID,
		"status": p.Status,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// syncRBAC upserts roles, permissions, and role-permission mappings from
// a config snapshot. Roles removed from config keep their rows; revoking
// is an explicit operation.
func (e Engine) syncRBAC(ctx context.Context, tx *sql.Tx, cfg *config.Config) error {
	for roleID, role := range cfg.RBAC.Roles {
		if err := e.Repo.InsertRole(ctx, tx, roleID, role.Description); err != nil {
			return err
		}
		for _, perm := range role.Permissions {
			if err := e.Repo.InsertPermission(ctx, tx, perm, ""); err != nil {
				return err
			}
			if err := e.Repo.AddRolePermission(ctx, tx, roleID, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

// UpdateProject changes mutable project fields and records the change.
func (e Engine) UpdateProject(ctx context.Context, id, status, name string, address *string, actorID string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return p, err
	}
	if status != "" && status != "active" && status != "archived" {
		return p, fmt.Errorf("invalid project status %s", status)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return p, err
	}
	defer tx.Rollback()

	if status != "" {
		p.Status = status
	}
	if name != "" {
		p.Name = name
	}
	if address != nil {
		p.Address = *address
	}
	if _, err := tx.ExecContext(ctx, `UPDATE projects SET status=?, name=?, address=? WHERE id=?`,
		p.Status, p.Name, nullable(p.Address), p.ID); err != nil {
		return p, err
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectUpdated, p.ID, "project", p.ID, actorID, events.EventPayload{
		"status": p.Status,
		"name":   p.Name,
	}); err != nil {
		return p, err
	}
	if err := tx.Commit(); err != nil {
		return p, err
	}
	return p, nil
}

// ImportProjectConfig validates and stores a config snapshot for a
// project, re-seeding the RBAC catalog from it.
func (e Engine) ImportProjectConfig(ctx context.Context, projectID string, cfg *config.Config, actorID string) error {
	if cfg == nil {
		return errors.New("config required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertProjectConfigTx(ctx, tx, projectID, cfg); err != nil {
		return err
	}
	if err := e.syncRBAC(ctx, tx, cfg); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeProjectUpdated, projectID, "project", projectID, actorID, events.EventPayload{
		"config": "imported",
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// GrantRole assigns a role to an actor on a project.
func (e Engine) GrantRole(ctx context.Context, projectID, actorID, roleID, grantedBy string) error {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.EnsureActor(ctx, tx, actorID, e.nowRFC3339()); err != nil {
		return err
	}
	if err := e.Repo.AssignRole(ctx, tx, projectID, actorID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRoleGranted, projectID, "actor", actorID, grantedBy, events.EventPayload{
		"role": roleID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// RevokeRole removes a role from an actor on a project.
func (e Engine) RevokeRole(ctx context.Context, projectID, actorID, roleID, revokedBy string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.RevokeRole(ctx, tx, projectID, actorID, roleID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TypeRoleRevoked, projectID, "actor", actorID, revokedBy, events.EventPayload{
		"role": roleID,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAPIKey mints a key for an actor and stores only its hash. The
// plaintext key is returned once and never persisted.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", errors.New("actor is required")
	}
	plaintext := uuid.New().String() + uuid.New().String()
	key := domain.APIKey{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plaintext),
		CreatedAt: e.nowRFC3339(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	defer tx.Rollback()
	if err := e.Repo.EnsureActor(ctx, tx, actorID, key.CreatedAt); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := e.Events.Append(ctx, tx, events.TypeAPIKeyCreated, "", "api_key", key.ID, actorID, events.EventPayload{
		"name": name,
	}); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, plaintext, nil
}

// WhoAmIResult describes an actor's project-scoped roles and permissions.
type WhoAmIResult struct {
	ActorID     string
	Roles       []string
	Permissions []string
}

// WhoAmI reports the roles and permissions an actor holds on a project.
func (e Engine) WhoAmI(ctx context.Context, projectID, actorID string) (WhoAmIResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return WhoAmIResult{}, err
	}
	defer tx.Rollback()
	roles, err := e.Auth.ActorRoles(ctx, tx, projectID, actorID)
	if err != nil {
		return WhoAmIResult{}, err
	}
	perms, err := e.Auth.ActorPermissions(ctx, tx, projectID, actorID)
	if err != nil {
		return WhoAmIResult{}, err
	}
	return WhoAmIResult{ActorID: actorID, Roles: roles, Permissions: perms}, nil
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

var validPriorities = map[string]bool{
	"low": true, "normal": true, "high": true, "critical": true,
}
