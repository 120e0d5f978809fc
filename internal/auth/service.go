package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
)

type Service struct {
	repo   *Repository
	secret string
	ttl    time.Duration
	log    *logger.Logger
}

func NewService(repo *Repository, secret string, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{repo: repo, secret: secret, ttl: ttl, log: log}
}

// SignIn checks the broker's credentials and returns a signed access token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	acct, err := s.repo.getByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !acct.Active {
		return "", apperr.Unauthorized("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt", "email", email)
		return "", apperr.Unauthorized("invalid credentials")
	}
	token, err := s.signToken(acct)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "sign token", err)
	}
	return token, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

func (s *Service) signToken(acct *account) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acct.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Roles: []string{acct.Role},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}
