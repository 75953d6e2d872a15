package token

import (
	"crypto/sha256"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	cookieKeyInfo   = "catalogue-editor session cookie"
	cookieKeyLength = 32
	minSecretLength = 16
)

// SessionClaims is the payload of the signed session cookie. Tokens never leave the
// server; the cookie only names the session record.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieSigner signs and verifies session cookies with HMAC-SHA256 using a key
// derived from the configured secret.
type CookieSigner struct {
	secret []byte
	issuer string
	maxAge time.Duration
}

// DeriveKey stretches the configured secret into the cookie signing key.
func DeriveKey(secret string) ([]byte, error) {
	if len(secret) < minSecretLength {
		return nil, errors.Wrapf(apperrors.ErrNotConfigured, "session secret must be at least %d characters", minSecretLength)
	}
	key := make([]byte, cookieKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, errors.Wrap(err, "failed to derive cookie key")
	}
	return key, nil
}

// NewCookieSigner creates a signer for cookies issued by issuer that live for maxAge
func NewCookieSigner(secret, issuer string, maxAge time.Duration) (*CookieSigner, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &CookieSigner{
		secret: key,
		issuer: issuer,
		maxAge: maxAge,
	}, nil
}

func (h *CookieSigner) MaxAge() time.Duration {
	return h.maxAge
}

func (h *CookieSigner) Sign(sessionID, subject string) (string, error) {
	now := NowTimeFunc()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.maxAge)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session cookie with HMAC")
	}
	return signedToken, nil
}

// Verify checks signature, issuer and expiry and returns the claims.
func (h *CookieSigner) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, h.getVerificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(h.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrInvalidToken, "session cookie: %v", err)
	}
	if claims.SessionID == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "session cookie has no session id")
	}
	return claims, nil
}

func (h *CookieSigner) getVerificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}
