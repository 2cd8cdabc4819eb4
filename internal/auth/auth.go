// Package auth resolves the caller of a request into a Principal. Nothing is
// stored on the request: every handler asks for the principal explicitly.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"tickethive/internal/status"
	"tickethive/models"
)

type Principal struct {
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
}

type Identity struct {
	Email       string
	DisplayName string
}

// IdentityVerifier checks a bearer token and returns who it belongs to.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// RoleLookup maps an email to its marketplace role.
type RoleLookup interface {
	RoleOf(ctx context.Context, email string) (models.Role, error)
}

// Verify turns an Authorization header value into a principal.
func Verify(ctx context.Context, credential string, ids IdentityVerifier, roles RoleLookup) (*Principal, error) {
	token := strings.TrimSpace(credential)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return nil, fmt.Errorf("missing credential: %w", status.ErrUnauthenticated)
	}

	id, err := ids.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	role, err := roles.RoleOf(ctx, id.Email)
	if err != nil {
		return nil, err
	}

	return &Principal{
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Role:        role,
	}, nil
}

// Authenticator resolves principals for pocketbase requests.
type Authenticator struct {
	ids   IdentityVerifier
	roles RoleLookup
}

func NewAuthenticator(ids IdentityVerifier, roles RoleLookup) *Authenticator {
	return &Authenticator{ids: ids, roles: roles}
}

func (a *Authenticator) Principal(e *core.RequestEvent) (*Principal, error) {
	return Verify(e.Request.Context(), e.Request.Header.Get("Authorization"), a.ids, a.roles)
}

// RecordVerifier validates pocketbase auth tokens.
type RecordVerifier struct {
	app core.App
}

func NewRecordVerifier(app core.App) *RecordVerifier {
	return &RecordVerifier{app: app}
}

func (v *RecordVerifier) VerifyToken(_ context.Context, token string) (*Identity, error) {
	record, err := v.app.FindAuthRecordByToken(token, core.TokenTypeAuth)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", status.ErrUnauthenticated)
	}

	return &Identity{
		Email:       record.Email(),
		DisplayName: record.GetString("name"),
	}, nil
}

// RoleStore reads roles from the users collection. Accounts without a role
// are plain users.
type RoleStore struct {
	db dbx.Builder
}

func NewRoleStore(db dbx.Builder) *RoleStore {
	return &RoleStore{db: db}
}

func (r *RoleStore) RoleOf(ctx context.Context, email string) (models.Role, error) {
	var raw string
	err := r.db.Select("role").
		From("users").
		Where(dbx.HashExp{"email": email}).
		WithContext(ctx).
		Row(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup role for %s: %w", email, err)
	}

	if strings.TrimSpace(raw) == "" {
		return models.RoleUser, nil
	}
	role, ok := models.ParseRole(raw)
	if !ok {
		return "", fmt.Errorf("unknown role %q for %s: %w", raw, email, status.ErrForbidden)
	}
	return role, nil
}

// Require returns ErrForbidden unless p holds one of roles.
func Require(p *Principal, roles ...models.Role) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role %q: %w", p.Role, status.ErrForbidden)
}
