package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const controlScope = "control"

// JWTService emite y valida los tokens que protegen la API de control del avatar.
type JWTService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked RevocationStore
	now     func() time.Time
}

type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTRevoked = errors.New("jwt revoked")
)

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "nestor",
		now:    time.Now,
	}
}

// NewJWTServiceWithStore agrega una lista de revocación compartida.
func NewJWTServiceWithStore(secret string, ttl time.Duration, store RevocationStore) *JWTService {
	svc := NewJWTService(secret, ttl)
	svc.revoked = store
	return svc
}

// Enabled indica si hay secreto configurado. Sin secreto la API de control queda abierta.
func (s *JWTService) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Issue firma un token de control para subject.
func (s *JWTService) Issue(subject string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrJWTInvalid
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, ErrJWTInvalid
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Scope: controlScope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse valida firma, expiración, emisor, scope y revocación.
func (s *JWTService) Parse(tokenString string) (Claims, error) {
	if !s.Enabled() {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(claims.ID)
		if err != nil {
			return Claims{}, err
		}
		if revoked {
			return Claims{}, ErrJWTRevoked
		}
	}
	return claims, nil
}

// Revoke invalida el token hasta su expiración. Requiere una RevocationStore.
func (s *JWTService) Revoke(tokenString string) error {
	if s.revoked == nil {
		return errors.New("revocation store not configured")
	}
	claims, err := s.Parse(tokenString)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(claims.ID, ttl)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return false
	}
	if claims.Scope != controlScope {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
