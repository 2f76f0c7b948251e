package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/pkg/logger"
)

// Sentinel errors returned by guard checks. Handlers map ErrUnauthorized to
// 401 and ErrForbidden to 403.
var (
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("permission denied")
)

// UserStore is the slice of the user repository the guard depends on.
type UserStore interface {
	GetByEmail(email string) (*models.User, error)
}

// Caller is an authenticated identity with its resolved role. A zero Caller
// (empty email) is unauthenticated.
type Caller struct {
	Email string
	Name  string
	Role  Role
	User  *models.User
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return c.Email != ""
}

// Guard resolves callers and enforces permission checks.
type Guard struct {
	users       UserStore
	ownerEmails []string
	log         *logger.Logger
}

// NewGuard creates a guard over the given user store and owner allow-list.
func NewGuard(users UserStore, ownerEmails []string, log *logger.Logger) *Guard {
	normalized := make([]string, 0, len(ownerEmails))
	for _, e := range ownerEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			normalized = append(normalized, e)
		}
	}
	return &Guard{users: users, ownerEmails: normalized, log: log}
}

// ResolveCaller builds a Caller for the given email. Unknown emails still get
// a caller with the default participant role so read endpoints keep working;
// an empty email yields an unauthenticated caller.
func (g *Guard) ResolveCaller(email, name string) (Caller, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return Caller{}, nil
	}

	user, err := g.users.GetByEmail(email)
	if err != nil {
		return Caller{}, fmt.Errorf("failed to resolve caller %s: %w", email, err)
	}
	if user == nil {
		// Known to the proxy but not to us yet.
		user = &models.User{Email: email, FullName: name}
	}

	return Caller{
		Email: email,
		Name:  name,
		Role:  ResolveRole(user, g.ownerEmails),
		User:  user,
	}, nil
}

// RequireAuth rejects unauthenticated callers.
func (g *Guard) RequireAuth(caller Caller) error {
	if !caller.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

// RequirePermission rejects callers whose role is not allowed the permission.
// Unknown permissions deny everyone, owners included.
func (g *Guard) RequirePermission(caller Caller, perm Permission) error {
	if err := g.RequireAuth(caller); err != nil {
		return err
	}
	if !perm.Allows(caller.Role) {
		g.log.Warn().
			Str("caller", caller.Email).
			Str("role", string(caller.Role)).
			Str("permission", string(perm)).
			Msg("Permission denied")
		return fmt.Errorf("%w: %s requires one of %v", ErrForbidden, perm, permissionRoles[perm])
	}
	return nil
}

// RequireOwner rejects everyone not on the owner allow-list. With an empty
// list this always fails.
func (g *Guard) RequireOwner(caller Caller) error {
	if err := g.RequireAuth(caller); err != nil {
		return err
	}
	if caller.Role != RoleOwner {
		return fmt.Errorf("%w: owner access required", ErrForbidden)
	}
	return nil
}
