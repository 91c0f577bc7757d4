package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/poofware/rental-service/internal/models"
)

// ValidateToken checks the token's RSA signature and standard claims,
// including that iss equals issuer, and returns the principal it names.
// An expired token yields jwt.ErrTokenExpired.
func ValidateToken(tokenString string, publicKey *rsa.PublicKey, issuer string) (models.Principal, error) {
	var p models.Principal

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return publicKey, nil
	})
	if err != nil {
		return p, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return p, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return p, errors.New("missing expiration claim")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return p, jwt.ErrTokenExpired
	}

	iss, ok := claims["iss"].(string)
	if !ok {
		return p, errors.New("missing issuer claim")
	}
	if iss != issuer {
		return p, errors.New("invalid token issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return p, errors.New("missing subject")
	}
	p.UserID, err = uuid.Parse(sub)
	if err != nil {
		return p, fmt.Errorf("subject is not a user id: %w", err)
	}

	// Tokens without a role claim belong to tenants.
	p.Role = models.RoleTenant
	if raw, present := claims["role"]; present {
		s, ok := raw.(string)
		if !ok {
			return p, errors.New("role claim must be a string")
		}
		if p.Role, err = models.ParseRole(s); err != nil {
			return p, err
		}
	}
	return p, nil
}
