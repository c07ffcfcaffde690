// Package rcauth drives the OAuth2 authorization-code-with-PKCE lifecycle
// against the platform and provides the authenticated transport every API
// call goes through.
package rcauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/avezina/chatscan/internal/adapters/auth"
	"github.com/avezina/chatscan/internal/domain"
	"github.com/avezina/chatscan/internal/ports"
	"github.com/avezina/chatscan/internal/session"
)

const (
	maxResponseBytes = 4 << 20
	maxErrorBytes    = 8 << 10

	// refreshSkew is how close to expiry a token may get before Do
	// attempts a refresh ahead of the request.
	refreshSkew = time.Minute
)

type State string

const (
	StateLoggedOut        State = "logged_out"
	StateAwaitingCallback State = "awaiting_callback"
	StateLoggedIn         State = "logged_in"
)

type Config struct {
	APIServerURL  string
	AuthServerURL string
	ClientID      string
}

// Manager is the single owner of session transitions. It moves
// LoggedOut -> AwaitingCallback -> LoggedIn, and back to LoggedOut on
// explicit logout or on any 401 from an authenticated request.
type Manager struct {
	cfg     Config
	session *session.Store
	client  *http.Client
	clock   ports.Clock
	log     zerolog.Logger

	mu    sync.Mutex
	state State
}

func NewManager(cfg Config, sess *session.Store, client *http.Client, clock ports.Clock, log zerolog.Logger) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Manager{
		cfg:     cfg,
		session: sess,
		client:  client,
		clock:   clock,
		log:     log,
		state:   StateLoggedOut,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Resume promotes the manager to LoggedIn when a stored token set exists,
// so a fresh process can pick up the previous login.
func (m *Manager) Resume(ctx context.Context) error {
	_, err := m.session.Tokens(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil
		}
		return err
	}

	m.setState(StateLoggedIn)
	return nil
}

// StartLogin generates and persists a PKCE verifier and returns the
// authorization URL the browser must visit. The caller owns opening the
// browser and receiving the redirect.
func (m *Manager) StartLogin(ctx context.Context, redirectURI, state string) (string, error) {
	if strings.TrimSpace(m.cfg.ClientID) == "" {
		return "", domain.ErrMissingClientID
	}

	pkce, err := auth.NewPKCEPair()
	if err != nil {
		return "", fmt.Errorf("generate pkce pair: %w", err)
	}

	if err := m.session.SetVerifier(ctx, pkce.Verifier); err != nil {
		return "", err
	}

	authURL, err := auth.BuildAuthorizationURL(auth.AuthorizationRequest{
		AuthServerURL: m.cfg.AuthServerURL,
		ClientID:      m.cfg.ClientID,
		RedirectURI:   redirectURI,
		State:         state,
		CodeChallenge: pkce.Challenge,
	})
	if err != nil {
		return "", err
	}

	m.setState(StateAwaitingCallback)
	m.log.Debug().Str("redirect_uri", redirectURI).Msg("login started")
	return authURL, nil
}

// CompleteLogin exchanges the authorization code for a token set. The
// stored verifier is destroyed whether the exchange succeeds or fails, so
// the code cannot be replayed. On failure the manager stays where it is;
// the caller resets it with Logout.
func (m *Manager) CompleteLogin(ctx context.Context, code, redirectURI string) error {
	if strings.TrimSpace(m.cfg.ClientID) == "" {
		return domain.ErrSessionExpired
	}

	verifier, err := m.session.Verifier(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = m.session.ClearVerifier(ctx) }()

	tokens, err := auth.ExchangeCodeForTokens(ctx, m.client, auth.TokenExchangeRequest{
		APIServerURL: m.cfg.APIServerURL,
		ClientID:     m.cfg.ClientID,
		RedirectURI:  redirectURI,
		Code:         code,
		CodeVerifier: verifier,
	})
	if err != nil {
		return err
	}

	if err := m.session.SetTokens(ctx, m.toTokenSet(tokens)); err != nil {
		return err
	}

	m.setState(StateLoggedIn)
	m.log.Debug().Msg("login complete")
	return nil
}

// Logout clears the whole session. Safe to call in any state, any number
// of times.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.session.Clear(ctx); err != nil {
		return err
	}

	m.setState(StateLoggedOut)
	return nil
}

// Do issues an authenticated GET-style JSON request and decodes the
// response into out (which may be nil). A 401 forces a logout and returns
// domain.ErrAuthExpired: the whole in-flight operation is over, not just
// this page. Other non-2xx statuses return *domain.APIError and leave the
// session untouched.
func (m *Manager) Do(ctx context.Context, method, path string, out any) error {
	tokens, err := m.session.Tokens(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return domain.ErrAuthExpired
		}
		return err
	}

	tokens = m.maybeRefresh(ctx, tokens)

	endpoint := strings.TrimRight(m.cfg.APIServerURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		m.log.Debug().Str("path", path).Msg("401 from api, forcing logout")
		if logoutErr := m.Logout(ctx); logoutErr != nil {
			return errors.Join(domain.ErrAuthExpired, logoutErr)
		}
		return domain.ErrAuthExpired
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return &domain.APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrProtocol, path, err)
	}

	return nil
}

// maybeRefresh swaps a near-expiry token set for a fresh one when a
// refresh token is available. Refresh failure is not fatal here: the
// original request still runs, and a 401 then takes the forced-logout
// path.
func (m *Manager) maybeRefresh(ctx context.Context, tokens session.TokenSet) session.TokenSet {
	if tokens.RefreshToken == "" || !tokens.ExpiringSoon(m.clock.Now(), refreshSkew) {
		return tokens
	}

	refreshed, err := auth.RefreshTokens(ctx, m.client, auth.RefreshTokenRequest{
		APIServerURL: m.cfg.APIServerURL,
		ClientID:     m.cfg.ClientID,
		RefreshToken: tokens.RefreshToken,
	})
	if err != nil {
		m.log.Debug().Err(err).Msg("token refresh failed, proceeding with stored token")
		return tokens
	}

	fresh := m.toTokenSet(refreshed)
	if err := m.session.SetTokens(ctx, fresh); err != nil {
		m.log.Debug().Err(err).Msg("persisting refreshed token failed")
	}
	m.log.Debug().Msg("token refreshed")
	return fresh
}

func (m *Manager) toTokenSet(tokens auth.Tokens) session.TokenSet {
	set := session.TokenSet{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
	}
	if tokens.ExpiresIn > 0 {
		set.ExpiresAt = m.clock.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second).Unix()
	}
	return set
}
