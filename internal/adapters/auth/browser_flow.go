package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avezina/chatscan/internal/domain"
)

const (
	authorizePath = "/restapi/oauth/authorize"
	tokenPath     = "/restapi/oauth/token"

	maxTokenResponseBytes = 1 << 20
)

var (
	ErrStateMismatch   = errors.New("oauth callback state mismatch")
	ErrCallbackTimeout = errors.New("timed out waiting for oauth callback")
	ErrMissingState    = errors.New("expected state is required")
)

type AuthorizationRequest struct {
	AuthServerURL string
	ClientID      string
	RedirectURI   string
	State         string
	CodeChallenge string
}

type TokenExchangeRequest struct {
	APIServerURL string
	ClientID     string
	RedirectURI  string
	Code         string
	CodeVerifier string
}

type RefreshTokenRequest struct {
	APIServerURL string
	ClientID     string
	RefreshToken string
}

// Tokens is the token endpoint response. Only the access token is
// mandatory; the platform may omit the rest.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func NewState() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func BuildAuthorizationURL(req AuthorizationRequest) (string, error) {
	if req.AuthServerURL == "" {
		return "", errors.New("auth server url is required")
	}
	if req.ClientID == "" {
		return "", domain.ErrMissingClientID
	}
	if req.RedirectURI == "" {
		return "", errors.New("redirect uri is required")
	}
	if req.State == "" {
		return "", ErrMissingState
	}
	if req.CodeChallenge == "" {
		return "", errors.New("code challenge is required")
	}

	parsed, err := url.Parse(strings.TrimRight(req.AuthServerURL, "/") + authorizePath)
	if err != nil {
		return "", fmt.Errorf("parse auth server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("auth server url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("auth server url host is required")
	}

	q := parsed.Query()
	q.Set("response_type", "code")
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("state", req.State)
	q.Set("code_challenge", req.CodeChallenge)
	q.Set("code_challenge_method", PKCEChallengeMethodS256)
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

// CallbackServer receives the authorization-code redirect on a loopback
// port and hands the code to the waiting login command.
type CallbackServer struct {
	expectedState string
	listener      net.Listener
	server        *http.Server
	resultCh      chan callbackResult
	resultOnce    sync.Once
	closeOnce     sync.Once
}

type callbackResult struct {
	code string
	err  error
}

func StartCallbackServer(listenAddr string, expectedState string) (*CallbackServer, error) {
	if expectedState == "" {
		return nil, ErrMissingState
	}
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen callback server: %w", err)
	}

	cb := &CallbackServer{
		expectedState: expectedState,
		listener:      listener,
		resultCh:      make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", cb.handleCallback)

	cb.server = &http.Server{Handler: mux}

	go func() {
		if serveErr := cb.server.Serve(cb.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cb.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return cb, nil
}

func (c *CallbackServer) RedirectURI() string {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d/oauth/callback", tcpAddr.Port)
	}
	return "http://localhost/oauth/callback"
}

func (c *CallbackServer) WaitForCode(timeout time.Duration) (string, error) {
	defer func() { _ = c.Close() }()

	select {
	case result := <-c.resultCh:
		return result.code, result.err
	case <-time.After(timeout):
		return "", ErrCallbackTimeout
	}
}

func (c *CallbackServer) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.server.Close()
	})
	return closeErr
}

func (c *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	if state != c.expectedState {
		c.trySendResult(callbackResult{err: ErrStateMismatch})
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	if oauthError := r.URL.Query().Get("error"); oauthError != "" {
		description := r.URL.Query().Get("error_description")
		if description != "" {
			oauthError = oauthError + ": " + description
		}
		c.trySendResult(callbackResult{err: errors.New(oauthError)})
		http.Error(w, "oauth error", http.StatusBadRequest)
		return
	}
	if code == "" {
		c.trySendResult(callbackResult{err: errors.New("missing authorization code")})
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	c.trySendResult(callbackResult{code: code})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Login complete. You can close this window."))
}

func (c *CallbackServer) trySendResult(result callbackResult) {
	c.resultOnce.Do(func() {
		c.resultCh <- result
	})
}

// ExchangeCodeForTokens trades an authorization code plus PKCE verifier
// for tokens. A non-2xx answer becomes a domain.TokenExchangeError so the
// caller can distinguish a rejected code from transport failures.
func ExchangeCodeForTokens(ctx context.Context, client *http.Client, req TokenExchangeRequest) (Tokens, error) {
	if req.APIServerURL == "" {
		return Tokens{}, errors.New("api server url is required")
	}
	if req.ClientID == "" {
		return Tokens{}, domain.ErrMissingClientID
	}
	if req.RedirectURI == "" {
		return Tokens{}, errors.New("redirect uri is required")
	}
	if req.Code == "" {
		return Tokens{}, errors.New("authorization code is required")
	}
	if req.CodeVerifier == "" {
		return Tokens{}, errors.New("code verifier is required")
	}

	values := url.Values{}
	values.Set("grant_type", "authorization_code")
	values.Set("code", req.Code)
	values.Set("redirect_uri", req.RedirectURI)
	values.Set("client_id", req.ClientID)
	values.Set("code_verifier", req.CodeVerifier)

	return postTokenForm(ctx, client, req.APIServerURL, values)
}

// RefreshTokens trades a refresh token for a fresh token set.
func RefreshTokens(ctx context.Context, client *http.Client, req RefreshTokenRequest) (Tokens, error) {
	if req.APIServerURL == "" {
		return Tokens{}, errors.New("api server url is required")
	}
	if req.ClientID == "" {
		return Tokens{}, domain.ErrMissingClientID
	}
	if req.RefreshToken == "" {
		return Tokens{}, errors.New("refresh token is required")
	}

	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("refresh_token", req.RefreshToken)
	values.Set("client_id", req.ClientID)

	return postTokenForm(ctx, client, req.APIServerURL, values)
}

func postTokenForm(ctx context.Context, client *http.Client, apiServerURL string, values url.Values) (Tokens, error) {
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := strings.TrimRight(apiServerURL, "/") + tokenPath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return Tokens{}, fmt.Errorf("create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Tokens{}, fmt.Errorf("call token endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Tokens{}, &domain.TokenExchangeError{Status: resp.StatusCode}
	}

	var tokens Tokens
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseBytes)).Decode(&tokens); err != nil {
		return Tokens{}, fmt.Errorf("%w: decode token response: %v", domain.ErrProtocol, err)
	}
	if tokens.AccessToken == "" {
		return Tokens{}, fmt.Errorf("%w: token response missing access_token", domain.ErrProtocol)
	}

	return tokens, nil
}
