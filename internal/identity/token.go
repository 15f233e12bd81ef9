package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/msomdec/spacebook/internal/domain"
)

// Claims is the validated content of an access token.
type Claims struct {
	Subject   string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

func (s *Service) generateJWT(account *domain.Account) (string, Claims, error) {
	now := s.now()
	c := Claims{
		Subject:   account.ID,
		Email:     account.Email,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.cfg.SessionTTL).Truncate(time.Second),
	}
	claims := jwt.MapClaims{
		"sub":   c.Subject,
		"email": c.Email,
		"jti":   c.TokenID,
		"iat":   now.Unix(),
		"exp":   c.ExpiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, c, nil
}

// ParseToken validates an access token's signature and expiry.
// Any failure is reported as domain.ErrInvalidCredentials.
func (s *Service) ParseToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Claims{}, domain.ErrInvalidCredentials
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, domain.ErrInvalidCredentials
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, domain.ErrInvalidCredentials
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, domain.ErrInvalidCredentials
	}
	jti, _ := mc["jti"].(string)
	if jti == "" {
		return Claims{}, domain.ErrInvalidCredentials
	}
	email, _ := mc["email"].(string)

	return Claims{Subject: sub, Email: email, TokenID: jti, ExpiresAt: exp.Time}, nil
}
