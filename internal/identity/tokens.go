package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"golang.org/x/crypto/bcrypt"

	"github.com/GridtNetwork/gridtlib/internal/gridterr"
	"github.com/GridtNetwork/gridtlib/internal/store"
)

// emailChangeClaims is the payload of an email-change token (spec §4.2:
// `{userId, newEmail, exp}`).
type emailChangeClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	NewEmail string `json:"new_email"`
}

// passwordResetClaims is the payload of a password-reset token (spec
// §4.2: `{userId, exp}`).
type passwordResetClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"user_id"`
}

func (s *Service) issueEmailChangeToken(userID int64, newEmail string) (string, error) {
	now := s.clock.Now()
	claims := emailChangeClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL))},
		UserID:           userID,
		NewEmail:         newEmail,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Service) issuePasswordResetToken(userID int64) (string, error) {
	now := s.clock.Now()
	claims := passwordResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL))},
		UserID:           userID,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *Service) parseEmailChangeToken(tokenStr string) (*emailChangeClaims, error) {
	var claims emailChangeClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, gridterr.Wrap(gridterr.Internal, "invalid or expired token", err)
	}
	return &claims, nil
}

func (s *Service) parsePasswordResetToken(tokenStr string) (*passwordResetClaims, error) {
	var claims passwordResetClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return nil, gridterr.Wrap(gridterr.Internal, "invalid or expired token", err)
	}
	return &claims, nil
}

// RequestEmailChange issues an email-change token for userID and sends
// it to newEmail (spec §4.2 RequestEmailChange). If newEmail is already
// registered, the request is logged and silently succeeds, so the
// caller can't use this endpoint to enumerate registered addresses.
func (s *Service) RequestEmailChange(ctx context.Context, userID int64, newEmail string) error {
	var taken bool
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		existing, err := q.GetUserByEmail(ctx, newEmail)
		if err != nil {
			return err
		}
		taken = existing != nil
		return nil
	})
	if err != nil {
		return err
	}
	if taken {
		s.log.Info("email change requested for an address already registered", "user_id", userID)
		return nil
	}

	token, err := s.issueEmailChangeToken(userID, newEmail)
	if err != nil {
		return gridterr.Wrap(gridterr.Internal, "issue email-change token", err)
	}
	if sendErr := s.notifier.Send(ctx, newEmail, s.templates.EmailChangeToken, map[string]any{"Token": token}); sendErr != nil {
		s.log.Error("email-change-token notification failed", "user_id", userID, "error", sendErr)
	}
	return nil
}

// ChangeEmail validates tokenStr and updates the bound user's email
// (spec §4.2 ChangeEmail).
func (s *Service) ChangeEmail(ctx context.Context, tokenStr string) error {
	claims, err := s.parseEmailChangeToken(tokenStr)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return gridterr.ErrUserNotFound
		}
		return q.UpdateEmail(ctx, claims.UserID, claims.NewEmail)
	})
}

// RequestPasswordReset issues a password-reset token for email's user
// and sends it (spec §4.2 RequestPasswordReset). Silent on an unknown
// email, for the same enumeration-resistance reason as
// RequestEmailChange.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	var userID int64
	var found bool
	err := s.store.WithRead(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u != nil {
			userID = u.ID
			found = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		s.log.Info("password reset requested for unknown email")
		return nil
	}

	token, err := s.issuePasswordResetToken(userID)
	if err != nil {
		return gridterr.Wrap(gridterr.Internal, "issue password-reset token", err)
	}
	if sendErr := s.notifier.Send(ctx, email, s.templates.PasswordResetLink, map[string]any{"Token": token}); sendErr != nil {
		s.log.Error("password-reset-token notification failed", "user_id", userID, "error", sendErr)
	}
	return nil
}

// ResetPassword validates tokenStr and sets a new password hash (spec
// §4.2 ResetPassword).
func (s *Service) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	claims, err := s.parsePasswordResetToken(tokenStr)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return gridterr.Wrap(gridterr.Internal, "hash password", err)
	}
	return s.store.WithTx(ctx, func(ctx context.Context, q *store.Queries) error {
		u, err := q.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return err
		}
		if u == nil {
			return gridterr.ErrUserNotFound
		}
		return q.UpdatePasswordHash(ctx, claims.UserID, string(hash))
	})
}
