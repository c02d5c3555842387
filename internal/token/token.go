// Package token issues and checks the staff session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const TokenExp = 12 * time.Hour // смена

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
	StaffID int64  `json:"staff_id"`
	Role    string `json:"role"`
}

type Token interface {
	BuildJWTString(staffID int64, role string) (string, error)
	GetStaff(tokenString string) (int64, string, error)
}

type token struct {
	secret []byte
	now    func() time.Time
}

func NewToken(secret string) Token {
	return &token{secret: []byte(secret), now: time.Now}
}

// BuildJWTString создаёт токен и возвращает его в виде строки.
func (t *token) BuildJWTString(staffID int64, role string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(t.now().Add(TokenExp)),
		},
		StaffID: staffID,
		Role:    role,
	}
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := jwtToken.SignedString(t.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetStaff разбирает токен и возвращает ID и роль сотрудника.
func (t *token) GetStaff(tokenString string) (int64, string, error) {
	claims := &Claims{}
	jwtToken, err := jwt.ParseWithClaims(tokenString, claims, func(jt *jwt.Token) (interface{}, error) {
		if _, ok := jt.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", jt.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !jwtToken.Valid || claims.StaffID == 0 {
		return 0, "", ErrInvalidToken
	}
	return claims.StaffID, claims.Role, nil
}
