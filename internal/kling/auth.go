package kling

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maauso/concepto-video-api/internal/httpclient"
)

// Token lifetime settings for access/secret key authentication.
const (
	tokenTTL       = 30 * time.Minute
	tokenClockSkew = 5 * time.Second
	// tokenRefresh re-signs a token before the vendor could see it expire.
	tokenRefresh = 25 * time.Minute
)

// ErrCredentialsRequired is returned when neither an API key nor an
// access/secret key pair is configured.
var ErrCredentialsRequired = errors.New("kling: API key or access/secret key pair is required")

// Credentials holds the supported Kling authentication inputs.
type Credentials struct {
	APIKey    string
	AccessKey string
	SecretKey string
}

// NewAuthorizer picks the authentication scheme: a static API key wins over
// signing short-lived tokens from the access/secret key pair.
func NewAuthorizer(creds Credentials) (httpclient.Authorizer, error) {
	if creds.APIKey != "" {
		return httpclient.Bearer(creds.APIKey), nil
	}
	if creds.AccessKey != "" && creds.SecretKey != "" {
		return NewTokenSigner(creds.AccessKey, creds.SecretKey), nil
	}
	return nil, ErrCredentialsRequired
}

// TokenSigner issues HS256 tokens from an access/secret key pair and caches
// them until shortly before expiry.
type TokenSigner struct {
	accessKey string
	secretKey string
	now       func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// NewTokenSigner creates a TokenSigner.
func NewTokenSigner(accessKey, secretKey string) *TokenSigner {
	return &TokenSigner{
		accessKey: accessKey,
		secretKey: secretKey,
		now:       time.Now,
	}
}

// Token returns a valid signed token, re-signing when the cached one is stale.
func (s *TokenSigner) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Sub(s.issuedAt) < tokenRefresh {
		return s.token, nil
	}

	claims := jwt.MapClaims{
		"iss": s.accessKey,
		"exp": now.Add(tokenTTL).Unix(),
		"nbf": now.Add(-tokenClockSkew).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secretKey))
	if err != nil {
		return "", fmt.Errorf("kling: sign token: %w", err)
	}

	s.token = signed
	s.issuedAt = now
	return signed, nil
}

// Authorize sets the bearer token on req.
func (s *TokenSigner) Authorize(req *http.Request) error {
	token, err := s.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
