package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"newsletterdispatch/internal/domain"
)

// AdminRole is the role an admin token must carry to use the newsletter API.
const AdminRole = "newsletter_admin"

type jwtClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// JWTIssuer signs admin tokens with HS256.
type JWTIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewJWTIssuer returns an issuer that signs JWTs with HS256 using the given secret.
func NewJWTIssuer(secret string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subject carrying roles, valid for expiry.
func (i *JWTIssuer) Issue(subject string, roles []string, expiry time.Duration) (string, error) {
	now := i.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier accepting unexpired HS256 tokens that carry AdminRole.
func NewJWTVerifier(secret string) domain.TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(token string) (string, error) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(token, claims, v.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if !slices.Contains(claims.Roles, AdminRole) {
		return "", fmt.Errorf("%w: missing role %s", domain.ErrInvalidToken, AdminRole)
	}
	return claims.Subject, nil
}

func (v *jwtVerifier) key(*jwt.Token) (interface{}, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("verifier has no secret")
	}
	return v.secret, nil
}
