package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tombee/fetchkit/internal/log"
	"github.com/tombee/fetchkit/pkg/network"
)

// DefaultExpiryLeeway is how long before expiry a cached token is replaced.
const DefaultExpiryLeeway = 30 * time.Second

type authRetryKey struct{}

// Bearer attaches an Authorization header from a token source and, on a 401
// response, drops the cached token and re-sends the request once with a
// fresh one. It is both a request and a response interceptor.
type Bearer struct {
	source oauth2.TokenSource
	leeway time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	cached *oauth2.Token
}

// BearerOption configures a Bearer.
type BearerOption func(*Bearer)

// WithExpiryLeeway overrides DefaultExpiryLeeway.
func WithExpiryLeeway(d time.Duration) BearerOption {
	return func(b *Bearer) {
		if d >= 0 {
			b.leeway = d
		}
	}
}

// WithAuthLogger sets the logger for token refresh diagnostics.
func WithAuthLogger(logger *slog.Logger) BearerOption {
	return func(b *Bearer) {
		b.logger = logger
	}
}

// NewBearer creates a Bearer backed by source.
func NewBearer(source oauth2.TokenSource, opts ...BearerOption) *Bearer {
	b := &Bearer{
		source: source,
		leeway: DefaultExpiryLeeway,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = log.WithComponent(b.logger, "auth")
	return b
}

// StaticToken returns a token source for a fixed access token. When the
// token is a JWT its exp claim becomes the token expiry.
func StaticToken(accessToken string) oauth2.TokenSource {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	if exp, ok := jwtExpiry(accessToken); ok {
		tok.Expiry = exp
	}
	return oauth2.StaticTokenSource(tok)
}

// ClientCredentials returns a token source for the OAuth2 client
// credentials flow.
func ClientCredentials(ctx context.Context, clientID, clientSecret, tokenURL string, scopes []string) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return cfg.TokenSource(ctx)
}

// InterceptRequest implements network.RequestInterceptor.
func (b *Bearer) InterceptRequest(_ context.Context, d *network.Descriptor) (*network.Descriptor, error) {
	tok, err := b.token()
	if err != nil {
		return nil, err
	}
	d.Header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return d, nil
}

// InterceptResponse implements network.ResponseInterceptor.
func (b *Bearer) InterceptResponse(ctx context.Context, s network.Sender, d *network.Descriptor, out network.Outcome) network.Outcome {
	if d == nil || out.StatusCode != http.StatusUnauthorized {
		return out
	}
	if retried, _ := ctx.Value(authRetryKey{}).(bool); retried {
		return out
	}

	b.invalidate()
	tok, err := b.token()
	if err != nil {
		b.logger.Warn("unable to refresh token after 401", log.Error(err))
		return out
	}

	b.logger.Debug("re-sending request with refreshed token", log.URLKey, d.URL.Redacted())
	retry := d.Clone()
	retry.Header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return s.Send(context.WithValue(ctx, authRetryKey{}, true), retry)
}

func (b *Bearer) token() (*oauth2.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cached != nil && b.fresh(b.cached) {
		return b.cached, nil
	}
	if b.source == nil {
		return nil, fmt.Errorf("no token source configured")
	}

	tok, err := b.source.Token()
	if err != nil {
		return nil, fmt.Errorf("obtain token: %w", err)
	}
	if tok.Expiry.IsZero() {
		if exp, ok := jwtExpiry(tok.AccessToken); ok {
			tok.Expiry = exp
		}
	}
	b.cached = tok
	return tok, nil
}

func (b *Bearer) fresh(tok *oauth2.Token) bool {
	if tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return b.now().Add(b.leeway).Before(tok.Expiry)
}

func (b *Bearer) invalidate() {
	b.mu.Lock()
	b.cached = nil
	b.mu.Unlock()
}

// jwtExpiry reads the exp claim of a JWT without verifying its signature.
// The token is only inspected to schedule a refresh, never trusted.
func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
