package middleware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"centralledger/pkg/errors"
)

// AdminClaims is what a validated admin token asserts.
type AdminClaims struct {
	Subject string
	Role    string
}

// JWTValidator validates HS256 bearer tokens issued to operators.
type JWTValidator struct {
	key []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{key: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf(errors.CodeUnauthorized, "unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New(errors.CodeUnauthorized, "invalid token claims")
	}

	out := &AdminClaims{}
	if sub, ok := claims["sub"].(string); ok {
		out.Subject = sub
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	return out, nil
}

// SignAdminToken mints an operator token. Used by ops tooling and tests.
func SignAdminToken(signingKey, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(signingKey))
}
