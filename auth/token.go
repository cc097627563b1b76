package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/domain"
	"chat-relay/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier issues and validates the bearer credentials carried by
// WebSocket handshakes. It implements contract.CredentialVerifier.
type TokenVerifier struct {
	key      []byte
	duration time.Duration
}

func NewTokenVerifier(key []byte, duration time.Duration) *TokenVerifier {
	return &TokenVerifier{key: key, duration: duration}
}

// Generate creates a signed JWT for a specific user.
func (v *TokenVerifier) Generate(ident domain.Identity) (string, error) {
	claims := &CustomClaims{
		UserID:       ident.UserID,
		Username:     ident.Username,
		ProfileImage: ident.ProfileImage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chat-relay",
		},
	}

	// HS256 (HMAC with SHA256), signed with the server secret.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.key)
}

// Verify parses and validates the signature and expiration of a JWT string.
// Any failure maps to ErrUnauthenticated: a bad credential is never
// degraded to an anonymous identity.
func (v *TokenVerifier) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return domain.Identity{}, errors.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Identity{}, errors.ErrUnauthenticated
	}

	return domain.Identity{
		UserID:       claims.UserID,
		Username:     claims.Username,
		ProfileImage: claims.ProfileImage,
	}, nil
}
