package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TokenSet is the credential bundle issued by the external session provider.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// OAuthToken converts a TokenSet into the x/oauth2 representation.
func (t TokenSet) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// FromOAuthToken builds a TokenSet from an x/oauth2 token. The refresh token
// falls back to the previous one when the provider doesn't rotate it.
func FromOAuthToken(tok *oauth2.Token, previousRefresh string) TokenSet {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    tok.Expiry,
	}
}

// SessionProvider is the external sign-in service. Refresh failure is terminal
// for the current credential: the user must re-authenticate.
type SessionProvider interface {
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}

// OAuthSessionProvider implements SessionProvider against a standard OAuth2
// token endpoint via x/oauth2.
type OAuthSessionProvider struct {
	cfg *oauth2.Config
}

func NewOAuthSessionProvider(clientID, clientSecret, tokenURL string) *OAuthSessionProvider {
	return &OAuthSessionProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
	}
}

func (p *OAuthSessionProvider) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	src := p.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenSet{}, fmt.Errorf("token refresh: %w", err)
	}
	return FromOAuthToken(tok, refreshToken), nil
}

// Session holds a user's live credentials for the duration of a processing
// loop. Refresh replaces the tokens in place; concurrent remote calls within
// one loop share the refreshed credential.
type Session struct {
	mu       sync.Mutex
	provider SessionProvider
	tokens   TokenSet
}

func NewSession(provider SessionProvider, tokens TokenSet) *Session {
	return &Session{provider: provider, tokens: tokens}
}

// AccessToken returns the current bearer token.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens.AccessToken
}

// Tokens returns a copy of the current token set.
func (s *Session) Tokens() TokenSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// Refresh performs one silent refresh through the session provider.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.tokens.RefreshToken
	s.mu.Unlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	fresh, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tokens = fresh
	s.mu.Unlock()
	return nil
}
