// Package session owns the persisted login state: the current token set
// and the in-flight PKCE verifier, both kept under fixed keys in a secret
// store. Nothing else reads or writes those keys.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avezina/chatscan/internal/domain"
	"github.com/avezina/chatscan/internal/ports"
)

const (
	tokensKey   = "rc/oauth_tokens"
	verifierKey = "rc/pkce_verifier"
)

// TokenSet is the stored form of an issued token. Only AccessToken is
// guaranteed; ExpiresAt is a unix timestamp, zero when the platform did
// not report a lifetime.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// ExpiringSoon reports whether the token reaches its expiry within skew.
// Tokens without a known lifetime never report as expiring.
func (t TokenSet) ExpiringSoon(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt <= 0 {
		return false
	}
	return !time.Unix(t.ExpiresAt, 0).After(now.Add(skew))
}

type Store struct {
	secrets ports.SecretStore
}

func NewStore(secrets ports.SecretStore) *Store {
	return &Store{secrets: secrets}
}

func (s *Store) SetTokens(ctx context.Context, tokens TokenSet) error {
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return errors.New("token set missing access token")
	}

	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode token set: %w", err)
	}

	if err := s.secrets.Put(ctx, tokensKey, string(payload)); err != nil {
		return fmt.Errorf("store token set: %w", err)
	}

	return nil
}

func (s *Store) Tokens(ctx context.Context) (TokenSet, error) {
	value, err := s.secrets.Get(ctx, tokensKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return TokenSet{}, domain.ErrNoSession
		}
		return TokenSet{}, fmt.Errorf("load token set: %w", err)
	}

	var tokens TokenSet
	if err := json.Unmarshal([]byte(value), &tokens); err != nil {
		return TokenSet{}, fmt.Errorf("decode token set: %w", err)
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return TokenSet{}, domain.ErrNoSession
	}

	return tokens, nil
}

func (s *Store) SetVerifier(ctx context.Context, verifier string) error {
	if strings.TrimSpace(verifier) == "" {
		return errors.New("pkce verifier is empty")
	}

	if err := s.secrets.Put(ctx, verifierKey, verifier); err != nil {
		return fmt.Errorf("store pkce verifier: %w", err)
	}

	return nil
}

func (s *Store) Verifier(ctx context.Context) (string, error) {
	value, err := s.secrets.Get(ctx, verifierKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", domain.ErrSessionExpired
		}
		return "", fmt.Errorf("load pkce verifier: %w", err)
	}

	return value, nil
}

// ClearVerifier removes the verifier on its own. Called after a token
// exchange, success or failure, so a replayed code can never be
// exchanged again.
func (s *Store) ClearVerifier(ctx context.Context) error {
	if err := s.secrets.Delete(ctx, verifierKey); err != nil {
		return fmt.Errorf("clear pkce verifier: %w", err)
	}
	return nil
}

// Clear removes the token set and the verifier together. A partial
// failure returns an error and leaves the next Clear to finish the job;
// clearing an already-empty session succeeds.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(
		s.secrets.Delete(ctx, tokensKey),
		s.secrets.Delete(ctx, verifierKey),
	)
}
