// Package google resolves authenticated HTTP clients for the Google
// Drive, Sheets and Slides APIs.
//
// Resolution order:
//
//  1. A service account key file.
//  2. A cached OAuth token file plus the client secrets file. Expired
//     tokens are refreshed and the refreshed token is written back.
//  3. An interactive consent flow over a loopback redirect with PKCE,
//     only when stdin is a terminal.
//
// Anything else fails with domain.ErrAuthentication.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/term"

	googleconn "github.com/tamil-acog/aganitha-chatbot/internal/connectors/google"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/core/ports/driven"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// DefaultConsentTimeout bounds the wait for the browser redirect.
const DefaultConsentTimeout = 5 * time.Minute

// Ensure Provider implements the interface.
var _ driven.CredentialProvider = (*Provider)(nil)

// Provider resolves Google credentials once and caches the client.
type Provider struct {
	cfg    domain.GoogleConfig
	scopes []string

	interactive func() bool
	browser     func(url string) error
	prompt      io.Writer
	timeout     time.Duration

	mu     sync.Mutex
	client *http.Client
}

// Option configures a Provider.
type Option func(*Provider)

// WithScopes overrides the requested scopes.
func WithScopes(scopes ...string) Option {
	return func(p *Provider) { p.scopes = scopes }
}

// WithInteractive overrides the terminal check gating the consent flow.
func WithInteractive(fn func() bool) Option {
	return func(p *Provider) { p.interactive = fn }
}

// WithBrowser overrides how the consent URL is opened.
func WithBrowser(fn func(url string) error) Option {
	return func(p *Provider) { p.browser = fn }
}

// WithPrompt sets where the consent URL is printed.
func WithPrompt(w io.Writer) Option {
	return func(p *Provider) { p.prompt = w }
}

// WithConsentTimeout bounds the wait for the browser redirect.
func WithConsentTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// New creates a credential provider for cfg.
func New(cfg domain.GoogleConfig, opts ...Option) *Provider {
	p := &Provider{
		cfg:    cfg,
		scopes: googleconn.Scopes,
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		browser: openBrowser,
		prompt:  os.Stderr,
		timeout: DefaultConsentTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HTTPClient returns an authenticated client, resolving it on first use.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *Provider) resolve(ctx context.Context) (*http.Client, error) {
	if fileExists(p.cfg.ServiceAccountFile) {
		logger.Debug("google auth: using service account %s", p.cfg.ServiceAccountFile)
		return p.serviceAccount(ctx)
	}

	if !fileExists(p.cfg.ClientSecretsFile) {
		return nil, fmt.Errorf("%w: no service account or client secrets file configured", domain.ErrAuthentication)
	}
	conf, err := p.oauthConfig()
	if err != nil {
		return nil, err
	}

	if fileExists(p.cfg.TokenFile) {
		logger.Debug("google auth: using cached token %s", p.cfg.TokenFile)
		return p.cachedToken(ctx, conf)
	}

	if !p.interactive() {
		return nil, fmt.Errorf("%w: no cached token and stdin is not a terminal", domain.ErrAuthentication)
	}
	return p.consent(ctx, conf)
}

func (p *Provider) serviceAccount(ctx context.Context) (*http.Client, error) {
	data, err := os.ReadFile(p.cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read service account: %w", domain.ErrAuthentication, err)
	}
	conf, err := googleoauth.JWTConfigFromJSON(data, p.scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse service account: %w", domain.ErrAuthentication, err)
	}
	return conf.Client(context.WithoutCancel(ctx)), nil
}

func (p *Provider) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(p.cfg.ClientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read client secrets: %w", domain.ErrAuthentication, err)
	}
	conf, err := googleoauth.ConfigFromJSON(data, p.scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secrets: %w", domain.ErrAuthentication, err)
	}
	return conf, nil
}

func (p *Provider) cachedToken(ctx context.Context, conf *oauth2.Config) (*http.Client, error) {
	tok, err := loadToken(p.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}
	return p.clientFor(ctx, conf, tok)
}

// clientFor wraps tok in a source that writes refreshed tokens back to
// the token file, and fetches a token eagerly so failures surface now.
// The client outlives ctx, so refreshes ignore its cancellation.
func (p *Provider) clientFor(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*http.Client, error) {
	ctx = context.WithoutCancel(ctx)
	src := &persistingSource{
		base: conf.TokenSource(ctx, tok),
		path: p.cfg.TokenFile,
		last: tok.AccessToken,
	}
	reuse := oauth2.ReuseTokenSource(tok, src)
	if _, err := reuse.Token(); err != nil {
		return nil, fmt.Errorf("%w: refresh token: %w", domain.ErrAuthentication, err)
	}
	return oauth2.NewClient(ctx, reuse), nil
}

func (p *Provider) consent(ctx context.Context, conf *oauth2.Config) (*http.Client, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("%w: generate state: %w", domain.ErrAuthentication, err)
	}
	verifier := oauth2.GenerateVerifier()

	server := newCallbackServer(0, state)
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("%w: start callback server: %w", domain.ErrAuthentication, err)
	}
	defer func() { _ = server.Stop() }()

	conf.RedirectURL = server.RedirectURI()
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	fmt.Fprintf(p.prompt, "Authorize Google Drive access by visiting:\n\n  %s\n\n", authURL)
	if err := p.browser(authURL); err != nil {
		logger.Debug("google auth: open browser: %v", err)
	}

	code, err := server.WaitForCode(ctx, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, err)
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", domain.ErrAuthentication, err)
	}
	if p.cfg.TokenFile != "" {
		if err := saveToken(p.cfg.TokenFile, tok); err != nil {
			logger.Warn("google auth: save token: %v", err)
		}
	}
	return p.clientFor(ctx, conf, tok)
}

// persistingSource writes every newly minted token to path.
type persistingSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last && s.path != "" {
		if err := saveToken(s.path, tok); err != nil {
			logger.Warn("google auth: save refreshed token: %v", err)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file holds no token")
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
