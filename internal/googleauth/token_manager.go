package googleauth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/imroc/req/v3"
)

const (
	// DefaultTokenURL is the Google OAuth2 token endpoint; it doubles as the
	// audience claim of the signed assertion.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// assertionLifetime is the iat-to-exp window of a signed assertion.
	assertionLifetime = time.Hour

	// expiryMargin is the remaining validity below which a cached token is
	// unconditionally replaced.
	expiryMargin = 5 * time.Minute

	defaultTimeout = 30 * time.Second
)

// Token is a cached bearer credential with its absolute expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenManager exchanges signed service-account assertions for bearer tokens
// and caches the result. The mutex is held across the whole acquisition,
// network round trip included, so concurrent callers serialize behind a single
// in-flight refresh instead of racing redundant exchanges.
type TokenManager struct {
	account  ServiceAccount
	scope    string
	tokenURL string
	client   *req.Client
	now      func() time.Time

	mu    sync.Mutex
	token *Token
}

type Option func(*TokenManager)

// WithTokenURL overrides the token endpoint (and therefore the assertion
// audience).
func WithTokenURL(u string) Option {
	return func(m *TokenManager) { m.tokenURL = u }
}

// WithTimeout bounds the token-exchange round trip.
func WithTimeout(d time.Duration) Option {
	return func(m *TokenManager) { m.client.SetTimeout(d) }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

func NewTokenManager(account ServiceAccount, scopes []string, opts ...Option) *TokenManager {
	m := &TokenManager{
		account:  account,
		scope:    strings.Join(scopes, ","),
		tokenURL: DefaultTokenURL,
		client:   req.C().SetTimeout(defaultTimeout),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a bearer token with at least expiryMargin of validity left,
// refreshing the cache when needed. Failures are *CredentialError; nothing is
// retried here.
func (m *TokenManager) Token(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && m.token.ExpiresAt.Sub(m.now()) > expiryMargin {
		return *m.token, nil
	}

	token, err := m.requestAccessToken(ctx)
	if err != nil {
		return Token{}, err
	}
	m.token = &token
	return token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (m *TokenManager) requestAccessToken(ctx context.Context) (Token, error) {
	assertion, err := m.signAssertion()
	if err != nil {
		return Token{}, err
	}

	var tr tokenResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": grantTypeJWTBearer,
			"assertion":  assertion,
		}).
		SetSuccessResult(&tr).
		Post(m.tokenURL)

	if err != nil {
		return Token{}, &CredentialError{Op: OpExchange, Err: err}
	}
	if !resp.IsSuccessState() {
		return Token{}, &CredentialError{Op: OpExchange, Status: resp.StatusCode, Body: resp.String()}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return Token{}, &CredentialError{Op: OpDecode, Body: resp.String()}
	}

	return Token{
		// The endpoint has been observed to pad tokens with trailing dots;
		// strip them before use.
		AccessToken: strings.TrimRight(tr.AccessToken, "."),
		ExpiresAt:   m.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func (m *TokenManager) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(m.account.PrivateKey))
	if err != nil {
		return "", &CredentialError{Op: OpParseKey, Err: err}
	}

	iat := m.now()
	claims := jwt.MapClaims{
		"iss":   m.account.ClientEmail,
		"scope": m.scope,
		"aud":   m.tokenURL,
		"iat":   iat.Unix(),
		"exp":   iat.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", &CredentialError{Op: OpSign, Err: err}
	}
	return signed, nil
}
