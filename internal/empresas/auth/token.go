package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "empresas"

// GenerateToken signs a session token binding a user to a session row.
func GenerateToken(userID, sessionID uuid.UUID, secret string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"sid": sessionID.String(),
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
		"iss": issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken checks the token signature and returns parsed claims if valid.
func validateToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}

// parseSessionToken returns the user and session ids carried by a token.
func parseSessionToken(tokenString, secret string) (userID, sessionID uuid.UUID, err error) {
	claims, err := validateToken(tokenString, secret)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if userID, err = uuid.Parse(sub); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	if sessionID, err = uuid.Parse(sid); err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid session claim: %w", err)
	}
	return userID, sessionID, nil
}
