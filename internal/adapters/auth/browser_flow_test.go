package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avezina/chatscan/internal/domain"
)

func TestBuildAuthorizationURLIncludesPKCEChallenge(t *testing.T) {
	t.Parallel()

	u, err := BuildAuthorizationURL(AuthorizationRequest{
		AuthServerURL: "https://platform.example.com",
		ClientID:      "client-123",
		RedirectURI:   "http://localhost:4420/oauth/callback",
		State:         "state-xyz",
		CodeChallenge: "challenge-abc",
	})
	require.NoError(t, err)

	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "/restapi/oauth/authorize", parsed.Path)

	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "http://localhost:4420/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "challenge-abc", q.Get("code_challenge"))
	assert.Equal(t, PKCEChallengeMethodS256, q.Get("code_challenge_method"))
}

func TestBuildAuthorizationURLRequiresClientID(t *testing.T) {
	t.Parallel()

	_, err := BuildAuthorizationURL(AuthorizationRequest{
		AuthServerURL: "https://platform.example.com",
		RedirectURI:   "http://localhost:4420/oauth/callback",
		State:         "state-xyz",
		CodeChallenge: "challenge-abc",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingClientID)
}

func TestBuildAuthorizationURLRejectsNonHTTPScheme(t *testing.T) {
	t.Parallel()

	_, err := BuildAuthorizationURL(AuthorizationRequest{
		AuthServerURL: "ftp://platform.example.com",
		ClientID:      "client-123",
		RedirectURI:   "http://localhost:4420/oauth/callback",
		State:         "state-xyz",
		CodeChallenge: "challenge-abc",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestCallbackServerReturnsCodeOnSuccess(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	resp, err := http.Get(server.RedirectURI() + "?code=auth-code&state=expected-state")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Login complete")

	code, err := server.WaitForCode(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "auth-code", code)
}

func TestCallbackServerReturnsErrorOnStateMismatch(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	resp, err := http.Get(server.RedirectURI() + "?code=auth-code&state=wrong-state")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = server.WaitForCode(2 * time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCallbackServerTimesOutWaitingForCallback(t *testing.T) {
	t.Parallel()

	server, err := StartCallbackServer("127.0.0.1:0", "expected-state")
	require.NoError(t, err)
	defer func() { _ = server.Close() }()

	_, err = server.WaitForCode(50 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCallbackTimeout)
}

func TestStartCallbackServerRequiresExpectedState(t *testing.T) {
	t.Parallel()

	_, err := StartCallbackServer("127.0.0.1:0", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingState)
}

func TestExchangeCodeForTokensSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/restapi/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "client-123", r.Form.Get("client_id"))
		assert.Equal(t, "http://localhost:4420/oauth/callback", r.Form.Get("redirect_uri"))
		assert.Equal(t, "code-abc", r.Form.Get("code"))
		assert.Equal(t, "verifier-xyz", r.Form.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	tokens, err := ExchangeCodeForTokens(context.Background(), http.DefaultClient, TokenExchangeRequest{
		APIServerURL: server.URL,
		ClientID:     "client-123",
		RedirectURI:  "http://localhost:4420/oauth/callback",
		Code:         "code-abc",
		CodeVerifier: "verifier-xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)
}

func TestExchangeCodeForTokensReturnsTokenExchangeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	_, err := ExchangeCodeForTokens(context.Background(), http.DefaultClient, TokenExchangeRequest{
		APIServerURL: server.URL,
		ClientID:     "client-123",
		RedirectURI:  "http://localhost:4420/oauth/callback",
		Code:         "code-abc",
		CodeVerifier: "verifier-xyz",
	})
	require.Error(t, err)

	var exchangeErr *domain.TokenExchangeError
	require.True(t, errors.As(err, &exchangeErr))
	assert.Equal(t, http.StatusBadRequest, exchangeErr.Status)
}

func TestExchangeCodeForTokensRejectsMissingAccessToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer server.Close()

	_, err := ExchangeCodeForTokens(context.Background(), http.DefaultClient, TokenExchangeRequest{
		APIServerURL: server.URL,
		ClientID:     "client-123",
		RedirectURI:  "http://localhost:4420/oauth/callback",
		Code:         "code-abc",
		CodeVerifier: "verifier-xyz",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProtocol)
}

func TestRefreshTokensSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "client-123", r.Form.Get("client_id"))
		assert.Equal(t, "refresh-abc", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":3600}`))
	}))
	defer server.Close()

	tokens, err := RefreshTokens(context.Background(), http.DefaultClient, RefreshTokenRequest{
		APIServerURL: server.URL,
		ClientID:     "client-123",
		RefreshToken: "refresh-abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "at2", tokens.AccessToken)
	assert.Equal(t, "rt2", tokens.RefreshToken)
}
