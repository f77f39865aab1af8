package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const RoleAdmin = "admin"

type JwtCustomClaim struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
	jwt.StandardClaims
}

// ErrJwtSecretMissing is returned while API_SECRET is unset; tokens are
// never signed or accepted with a built-in key.
var ErrJwtSecretMissing = errors.New("API_SECRET is not set")

func jwtSecret() ([]byte, error) {
	secret := strings.TrimSpace(os.Getenv("API_SECRET"))
	if secret == "" {
		return nil, ErrJwtSecretMissing
	}
	return []byte(secret), nil
}

// CheckJwtSecret fails when no signing secret is configured. Call it at startup.
func CheckJwtSecret() error {
	_, err := jwtSecret()
	return err
}

func JwtGenerate(userID uint, role string) (string, error) {
	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || tokenLifespan <= 0 {
		tokenLifespan = 24
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:   userID,
		Role: role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(tokenLifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	token, err := t.SignedString(secret)
	if err != nil {
		return "", err
	}

	return token, nil
}

func JwtValidate(token string) (*jwt.Token, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	return jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return secret, nil
	})
}
