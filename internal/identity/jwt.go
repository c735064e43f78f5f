package identity

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the fields the engine reads from an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenProvider derives the current identity from a JWT access token handed
// over by the auth layer. SetToken validates and adopts the token; Clear
// drops it. Both notify auth-change subscribers.
type TokenProvider struct {
	signingKey []byte

	mu      sync.RWMutex
	profile *Profile
	subs    map[int]func(*Profile)
	nextID  int
}

func NewTokenProvider(signingKey string) *TokenProvider {
	return &TokenProvider{
		signingKey: []byte(signingKey),
		subs:       make(map[int]func(*Profile)),
	}
}

func (p *TokenProvider) CurrentUserID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return "", false
	}
	return p.profile.UserID, true
}

func (p *TokenProvider) OnAuthChange(fn func(*Profile)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SetToken validates the token and adopts its subject as the current user.
func (p *TokenProvider) SetToken(tokenString string) error {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("access token is not valid")
	}
	if claims.Subject == "" {
		return fmt.Errorf("access token has no subject")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("access token expired at %s", claims.ExpiresAt)
	}

	profile := &Profile{UserID: claims.Subject, Email: claims.Email}

	p.mu.Lock()
	p.profile = profile
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(profile)
	}
	return nil
}

// Clear drops the current identity, returning the session to anonymous.
func (p *TokenProvider) Clear() {
	p.mu.Lock()
	p.profile = nil
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

func (p *TokenProvider) snapshotSubs() []func(*Profile) {
	out := make([]func(*Profile), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}
