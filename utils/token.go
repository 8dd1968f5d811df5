package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// AuthEnabled is true when API_SECRET is set; without it mutating routes are open.
func AuthEnabled() bool {
	return os.Getenv("API_SECRET") != ""
}

func jwtSecret() []byte {
	return []byte(os.Getenv("API_SECRET"))
}

func JwtGenerate(userID int, username string, role string) (string, error) {
	if !AuthEnabled() {
		return "", errors.New("API_SECRET is not set")
	}
	tokenLifespan := 24
	if raw := os.Getenv("TOKEN_HOUR_LIFESPAN"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("invalid TOKEN_HOUR_LIFESPAN: %w", err)
		}
		tokenLifespan = n
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:       userID,
		Username: username,
		Role:     role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(tokenLifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	return t.SignedString(jwtSecret())
}

func JwtValidate(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret(), nil
	})
}
