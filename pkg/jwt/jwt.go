package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken         = errors.New("invalid token")
	ErrMissingSecret        = errors.New("remember-me secret is not configured")
)

// AssertionService signs and checks the long-lived remember-me assertion that
// can stand in for a missing session token.
type AssertionService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

func NewAssertionService(secret string, expiry time.Duration, issuer string) (*AssertionService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &AssertionService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue returns a signed assertion for user and its expiry.
func (s *AssertionService) Issue(user *domain.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.expiry)

	claims := domain.RememberClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID: user.ID,
		Email:  user.Email,
		Type:   domain.RememberTokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses an assertion and checks signature, issuer, expiry and type.
func (s *AssertionService) Verify(tokenString string) (*domain.RememberClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.RememberClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*domain.RememberClaims)
	if !ok || !token.Valid || claims.Type != domain.RememberTokenType || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
