// Package auth provides optional password protection for the HTTP API.
// A single local user sets a password; logins mint a signed session
// token carried in a cookie or an Authorization header. With no
// password configured the API stays open.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoPasswordSet      = errors.New("no password has been set")
	ErrPasswordRequired   = errors.New("password is required")
	ErrAuthDisabled       = errors.New("authentication is disabled")
)

const defaultTokenHours = 24

// Claims are the session token claims. One local user, so the
// registered set is all there is.
type Claims struct {
	jwt.RegisteredClaims
}

// Config carries the auth settings from the main configuration.
type Config struct {
	Enabled    bool
	JWTSecret  string
	TokenHours int
}

// Service handles password storage and session tokens.
type Service struct {
	db       *sql.DB
	secret   []byte
	tokenTTL time.Duration
	enabled  bool
	logger   zerolog.Logger
}

// NewService creates the auth service. When the config carries no
// secret, one is generated on first run and persisted so sessions
// survive restarts.
func NewService(db *sql.DB, cfg Config, logger zerolog.Logger) (*Service, error) {
	hours := cfg.TokenHours
	if hours <= 0 {
		hours = defaultTokenHours
	}
	s := &Service{
		db:       db,
		tokenTTL: time.Duration(hours) * time.Hour,
		enabled:  cfg.Enabled,
		logger:   logger.With().Str("component", "auth").Logger(),
	}

	if cfg.JWTSecret != "" {
		s.secret = []byte(cfg.JWTSecret)
		if err := s.ensureRow(context.Background()); err != nil {
			return nil, err
		}
		return s, nil
	}

	secret, err := s.loadOrGenerateSecret(context.Background())
	if err != nil {
		return nil, err
	}
	s.secret = secret
	return s, nil
}

// Enabled reports whether auth is switched on in the configuration.
func (s *Service) Enabled() bool {
	return s.enabled
}

// RequiresAuth reports whether requests must carry a valid token.
// Auth that is enabled but has no password yet stays open so the
// first-time setup can happen.
func (s *Service) RequiresAuth() bool {
	return s.enabled && s.IsPasswordSet()
}

// IsPasswordSet returns true when a password hash is stored.
func (s *Service) IsPasswordSet() bool {
	var hash string
	err := s.db.QueryRow("SELECT password_hash FROM auth_settings WHERE id = 1").Scan(&hash)
	return err == nil && hash != ""
}

// SetPassword stores a new password hash.
func (s *Service) SetPassword(ctx context.Context, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE auth_settings SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		string(hash))
	if err != nil {
		return fmt.Errorf("failed to save password: %w", err)
	}

	s.logger.Info().Msg("password updated")
	return nil
}

// ClearPassword removes the stored password, reopening the API.
func (s *Service) ClearPassword(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_settings SET password_hash = '', updated_at = CURRENT_TIMESTAMP WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to clear password: %w", err)
	}

	s.logger.Info().Msg("password removed")
	return nil
}

// ValidatePassword checks the given password against the stored hash.
func (s *Service) ValidatePassword(ctx context.Context, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT password_hash FROM auth_settings WHERE id = 1").Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && hash == "") {
		return ErrNoPasswordSet
	}
	if err != nil {
		return fmt.Errorf("failed to load password hash: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken mints a signed session token.
func (s *Service) GenerateToken() (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "paneldeck",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken checks a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// loadOrGenerateSecret reads the persisted signing secret, creating
// and storing one on first run.
func (s *Service) loadOrGenerateSecret(ctx context.Context) ([]byte, error) {
	var stored string
	err := s.db.QueryRowContext(ctx,
		"SELECT jwt_secret FROM auth_settings WHERE id = 1").Scan(&stored)

	switch {
	case err == nil && stored != "":
		secret, decErr := hex.DecodeString(stored)
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode stored JWT secret: %w", decErr)
		}
		return secret, nil

	case errors.Is(err, sql.ErrNoRows) || (err == nil && stored == ""):
		secret := make([]byte, 32)
		if _, randErr := rand.Read(secret); randErr != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", randErr)
		}
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO auth_settings (id, password_hash, jwt_secret, updated_at)
			VALUES (1, '', ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET jwt_secret = excluded.jwt_secret,
				updated_at = CURRENT_TIMESTAMP`,
			hex.EncodeToString(secret))
		if execErr != nil {
			return nil, fmt.Errorf("failed to persist JWT secret: %w", execErr)
		}
		return secret, nil

	default:
		return nil, fmt.Errorf("failed to load JWT secret: %w", err)
	}
}

// ensureRow guarantees the settings row exists when the secret comes
// from the configuration instead of the database.
func (s *Service) ensureRow(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_settings (id, password_hash, jwt_secret, updated_at)
		VALUES (1, '', '', CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO NOTHING`)
	return err
}
