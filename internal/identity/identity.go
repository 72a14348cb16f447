// Package identity implements the Identity controller (spec §4.2): user
// registration, password/email lifecycle, and the HS256 tokens that
// gate email changes and password resets.
package identity

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/GridtNetwork/gridtlib/internal/clock"
	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/mail"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

const tokenTTL = 2 * time.Hour

// Templates names the mail templates the identity flows send (spec §6:
// PASSWORD_CHANGE_NOTIFICATION_TEMPLATE, EMAIL_CHANGE_TEMPLATE,
// PASSWORD_RESET_TEMPLATE). A zero-value Templates falls back to
// Gridt's stock template ids, so callers that don't operate their own
// template registry don't need to set anything.
type Templates struct {
	PasswordChanged   string
	EmailChangeToken  string
	PasswordResetLink string
}

func (t Templates) withDefaults() Templates {
	if t.PasswordChanged == "" {
		t.PasswordChanged = "password-changed"
	}
	if t.EmailChangeToken == "" {
		t.EmailChangeToken = "email-change-token"
	}
	if t.PasswordResetLink == "" {
		t.PasswordResetLink = "password-reset-token"
	}
	return t
}

// User is the subset of store.User the identity controller exposes,
// enriched with the derived, backwards-compatible avatar hash (spec §3:
// "avatar = MD5 of lowercased email bytes").
type User struct {
	ID       int64
	Email    string
	Username string
	Bio      *string
	IsAdmin  bool
	Avatar   string
}

func fromStore(u *store.User) *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, Email: u.Email, Username: u.Username, Bio: u.Bio, IsAdmin: u.IsAdmin, Avatar: AvatarHash(u.Email)}
}

// AvatarHash is the hex MD5 digest of the lowercased email, matching the
// legacy Gravatar-style avatar surface callers already depend on. Exported
// so internal/jsonview can derive the same avatar for a graph.User, which
// carries an email but not a precomputed hash.
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(email)))
	return hex.EncodeToString(sum[:])
}

// Service implements user registration, authentication, and the
// token-gated email/password change flows.
type Service struct {
	store     *store.Store
	notifier  *mail.Notifier
	clock     clock.Clock
	secret    []byte
	log       *slog.Logger
	templates Templates
}

// NewService constructs an identity service. secret is the HS256 signing
// key for email-change/password-reset tokens (spec §4.2, §6
// SECRET_KEY). logger defaults to slog.Default() if nil. templates'
// zero value uses Gridt's stock template ids.
func NewService(s *store.Store, notifier *mail.Notifier, c clock.Clock, secret []byte, logger *slog.Logger, templates Templates) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, notifier: notifier, clock: c, secret: secret, log: logger, templates: templates.withDefaults()}
}

// Register creates a new User with a bcrypt password hash (spec §4.2
// Register). Fails if email is already registered.
func (s *Service) Register(ctx context.Context, username, email, password string, isAdmin bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, gridterr.Wrap(gridterr.Internal, "hash password", err)
	}

	var result *User
	err = s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		existing, err := q.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return gridterr.New(gridterr.Internal, "email already registered")
		}
		id, err := q.CreateUser(ctx, email, username, string(hash), isAdmin)
		if err != nil {
			return err
		}
		result = &User{ID: id, Email: email, Username: username, IsAdmin: isAdmin, Avatar: avatarHash(email)}
		return nil
	})
	return result, err
}

// VerifyPasswordByEmail looks up the user with email and checks
// password, returning BadCredentials if the email is unknown or the
// password doesn't match the stored hash (spec §4.2
// VerifyPasswordByEmail) — deliberately the same error in both cases, so
// the failure doesn't reveal whether the email is registered.
func (s *Service) VerifyPasswordByEmail(ctx context.Context, email, password string) (int64, error) {
	var userID int64
	var hash string
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u != nil {
			userID = u.ID
			hash = u.PasswordHash
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, gridterr.ErrBadCredentials
	}
	return userID, nil
}

// VerifyPasswordById checks password against userID's stored hash (spec
// §4.2 VerifyPasswordById).
func (s *Service) VerifyPasswordById(ctx context.Context, userID int64, password string) (bool, error) {
	var hash string
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return gridterr.ErrUserNotFound
		}
		hash = u.PasswordHash
		return nil
	})
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// GetUser returns userID's profile view, or UserNotFound.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	var result *User
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return gridterr.ErrUserNotFound
		}
		result = fromStore(u)
		return nil
	})
	return result, err
}

// UpdateBio sets userID's bio text (spec §4.2 UpdateBio).
func (s *Service) UpdateBio(ctx context.Context, userID int64, bio string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return gridterr.ErrUserNotFound
		}
		return q.UpdateBio(ctx, userID, bio)
	})
}

// ChangePassword replaces userID's password hash and sends a
// change-notification email (spec §4.2 ChangePassword). The send
// failure is logged, not returned — changing the password already
// succeeded.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return gridterr.Wrap(gridterr.Internal, "hash password", err)
	}

	var email string
	err = s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return gridterr.ErrUserNotFound
		}
		email = u.Email
		return q.UpdatePasswordHash(ctx, userID, string(hash))
	})
	if err != nil {
		return err
	}

	if sendErr := s.notifier.Send(ctx, email, s.templates.PasswordChanged, nil); sendErr != nil {
		s.log.Error("password-changed notification failed", "user_id", userID, "error", sendErr)
	}
	return nil
}
