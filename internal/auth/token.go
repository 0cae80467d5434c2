package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"visa-onboarding-service/internal/domain"
)

// Claims are the JWT claims issued to employees and HR staff.
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

type Validator struct {
	secret []byte
}

func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Validator{secret: []byte(secret)}, nil
}

// Validate parses an HS256 token and returns the caller it identifies.
func (v *Validator) Validate(tokenStr string) (domain.Caller, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Caller{}, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return domain.Caller{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return domain.Caller{}, errors.New("token subject is required")
	}
	switch claims.Role {
	case domain.RoleEmployee, domain.RoleHR:
	default:
		return domain.Caller{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return domain.Caller{ID: claims.Subject, Role: claims.Role}, nil
}

// IssueToken signs a token for caller. The api only validates tokens; this is
// used by tests and local tooling.
func (v *Validator) IssueToken(caller domain.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: caller.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
