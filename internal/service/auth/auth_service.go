package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"trackvote/pkg/errors"
	"trackvote/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AdminRole is the only role the admin surface recognizes
const AdminRole = "admin"

const issuer = "trackvote"

// AdminClaims represents JWT claims for admin sessions
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service checks the admin password and issues session tokens
type Service struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
	logger       *logger.Logger
}

// NewService creates an admin auth service. An empty jwtSecret gets a random
// per-process secret, so sessions do not survive a restart.
func NewService(passwordHash, jwtSecret string, ttl time.Duration, logger *logger.Logger) (*Service, error) {
	secret := []byte(jwtSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		logger.Warn("JWT_SECRET not set, using an ephemeral secret")
	}
	if passwordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Service{
		passwordHash: []byte(passwordHash),
		secret:       secret,
		ttl:          ttl,
		now:          time.Now,
		logger:       logger,
	}, nil
}

// Login compares password with the configured bcrypt hash and issues a token
func (s *Service) Login(ctx context.Context, password string) (*LoginResponse, error) {
	if password == "" {
		return nil, errors.NewInvalidInputError("Password is required", nil)
	}
	if len(s.passwordHash) == 0 {
		return nil, errors.NewAuthenticationError("Admin login is not configured")
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Info("Admin login rejected")
		return nil, errors.NewAuthenticationError("Invalid password")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := AdminClaims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   AdminRole,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.NewInternalError("Failed to issue token", err)
	}

	s.logger.Info("Admin logged in")
	return &LoginResponse{Token: token, ExpiresAt: expiresAt.UTC()}, nil
}

// ValidateToken parses and checks an admin session token
func (s *Service) ValidateToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}
	if claims.Role != AdminRole {
		return nil, errors.NewAuthenticationError("Insufficient privileges")
	}
	return claims, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
