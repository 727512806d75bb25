package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/activity"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/domain"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/engine/auth"
	"github.com/Ghadaidris/AI-Powered-Event-Management-System-Backend/internal/repo"
)

const minPasswordLength = 8

// ResolveProfile maps an authenticated principal to its profile.
func (e Engine) ResolveProfile(ctx context.Context, profileID string) (domain.Profile, error) {
	if strings.TrimSpace(profileID) == "" {
		return domain.Profile{}, ErrProfileNotFound
	}
	p, err := e.Repo.GetProfile(ctx, profileID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Profile{}, ErrProfileNotFound
	}
	return p, err
}

type SignupOptions struct {
	Username string
	Email    string
	Password string
}

// Signup creates an available staff profile with a bcrypt password hash.
func (e Engine) Signup(ctx context.Context, opts SignupOptions) (domain.Profile, error) {
	if !e.Config.Auth.AllowSignup {
		return domain.Profile{}, auth.ForbiddenError{Action: "profile.signup", Rule: "signup is disabled"}
	}
	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return domain.Profile{}, ValidationError{Field: "username", Reason: "is required"}
	}
	if len(opts.Password) < minPasswordLength {
		return domain.Profile{}, ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Profile{}, err
	}
	p := domain.Profile{
		ID:           uuid.NewString(),
		Username:     opts.Username,
		Email:        strings.TrimSpace(opts.Email),
		Role:         domain.RoleStaff,
		IsAvailable:  true,
		PasswordHash: string(hash),
		CreatedAt:    e.timestamp(),
	}
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if err := r.InsertProfile(ctx, p); err != nil {
			if repo.IsUniqueViolation(err) {
				return ValidationError{Field: "username", Reason: "is already taken"}
			}
			return err
		}
		return e.writer().Record(ctx, tx, activity.ProfileCreated, p.ID, p.ID, activity.Payload{"role": p.Role})
	})
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// Authenticate checks a username/password pair.
func (e Engine) Authenticate(ctx context.Context, username, password string) (domain.Profile, error) {
	p, err := e.Repo.GetProfileByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Profile{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Profile{}, err
	}
	if p.PasswordHash == "" {
		return domain.Profile{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return domain.Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

func (e Engine) ListProfiles(ctx context.Context, actorID string) ([]domain.Profile, error) {
	if _, err := e.ResolveProfile(ctx, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListProfiles(ctx)
}

// SetProfileRole changes a role. Admin only; the role must be in the closed set.
func (e Engine) SetProfileRole(ctx context.Context, actorID, profileID, role string) (domain.Profile, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := auth.Check(actor, auth.ActionSetRole, auth.Resource{}); err != nil {
		return domain.Profile{}, err
	}
	newRole, ok := domain.ParseRole(role)
	if !ok {
		return domain.Profile{}, ValidationError{Field: "role", Reason: "must be one of admin, organizer, manager, staff"}
	}
	var target domain.Profile
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		var err error
		target, err = r.GetProfile(ctx, profileID)
		if err != nil {
			return err
		}
		if err := r.UpdateProfileRole(ctx, profileID, newRole); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.ProfileRoleChanged, profileID, actor.ID, activity.Payload{
			"from": target.Role,
			"to":   newRole,
		})
	})
	if err != nil {
		return domain.Profile{}, err
	}
	target.Role = newRole
	return target, nil
}

type AvailabilityOptions struct {
	IsAvailable *bool
	CurrentTeam *string
}

func (e Engine) SetAvailability(ctx context.Context, actorID, profileID string, opts AvailabilityOptions) (domain.Profile, error) {
	actor, err := e.ResolveProfile(ctx, actorID)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := auth.Check(actor, auth.ActionSetAvailability, auth.Resource{ProfileID: profileID}); err != nil {
		return domain.Profile{}, err
	}
	var p domain.Profile
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if err := r.UpdateProfileAvailability(ctx, profileID, repo.ProfileAvailability{IsAvailable: opts.IsAvailable, CurrentTeam: opts.CurrentTeam}); err != nil {
			return err
		}
		var err error
		if p, err = r.GetProfile(ctx, profileID); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.ProfileAvailabilityChanged, profileID, actor.ID, activity.Payload{
			"is_available": p.IsAvailable,
			"current_team": deref(p.CurrentTeam),
		})
	})
	return p, err
}

// BootstrapProfile creates or promotes a profile without a policy check. It is
// the only way to seed the first admin or organizer.
func (e Engine) BootstrapProfile(ctx context.Context, id, username string, role domain.Role) (domain.Profile, error) {
	if _, ok := domain.ParseRole(string(role)); !ok {
		return domain.Profile{}, ValidationError{Field: "role", Reason: "must be one of admin, organizer, manager, staff"}
	}
	if strings.TrimSpace(username) == "" {
		return domain.Profile{}, ValidationError{Field: "username", Reason: "is required"}
	}
	if id == "" {
		id = uuid.NewString()
	}
	var p domain.Profile
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		existing, err := r.GetProfile(ctx, id)
		switch {
		case err == nil:
			if err := r.UpdateProfileRole(ctx, id, role); err != nil {
				return err
			}
			existing.Role = role
			p = existing
		case errors.Is(err, repo.ErrNotFound):
			p = domain.Profile{ID: id, Username: username, Role: role, IsAvailable: true, CreatedAt: e.timestamp()}
			if err := r.InsertProfile(ctx, p); err != nil {
				if repo.IsUniqueViolation(err) {
					return ValidationError{Field: "username", Reason: "is already taken"}
				}
				return err
			}
		default:
			return err
		}
		return e.writer().Record(ctx, tx, activity.ProfileBootstrapped, p.ID, "system", activity.Payload{"role": role})
	})
	return p, err
}

// CreateAPIKey mints a random key for a profile; only the hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, profileID, name string) (string, domain.APIKey, error) {
	if _, err := e.ResolveProfile(ctx, profileID); err != nil {
		return "", domain.APIKey{}, err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.APIKey{}, err
	}
	raw := "evk_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.timestamp(),
	}
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if err := r.InsertAPIKey(ctx, key); err != nil {
			return err
		}
		return e.writer().Record(ctx, tx, activity.APIKeyCreated, key.ID, profileID, activity.Payload{"name": name})
	})
	if err != nil {
		return "", domain.APIKey{}, err
	}
	return raw, key, nil
}
