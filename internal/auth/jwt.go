package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims identifies the operator or service allowed to trigger syncs.
// Tokens are minted by the session layer or by mirrorctl; this service only
// verifies them.
type AppClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

func GenerateJWT(operator string, secret string, ttl time.Duration) (string, error) {
	expirationTime := time.Now().Add(ttl)

	claims := &AppClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "drive-mirror",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func VerifyJWT(tokenString, secret string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
