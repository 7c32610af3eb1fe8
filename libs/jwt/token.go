package jwt

import (
	"errors"
	"fmt"
	"os"
	"time"

	jwtgo "github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims 访问 HTTP 接口的令牌
type Claims struct {
	jwtgo.StandardClaims
}

// Sign issues an HS256 token for subject valid for ttl.
func Sign(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		StandardClaims: jwtgo.StandardClaims{
			Subject:   subject,
			Issuer:    issuer(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse verifies token against secret and returns its claims.
func Parse(secret, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwtgo.ParseWithClaims(token, claims, func(t *jwtgo.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func issuer() string {
	if name := os.Getenv("APP_NAME"); name != "" {
		return name
	}
	return "blendgpt"
}
