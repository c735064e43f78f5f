// Package identity exposes the current-user identity consumed by the sync
// engine. Token exchange itself happens elsewhere; this package only answers
// "who is signed in right now" and announces transitions.
package identity

import "sync"

// Profile describes the signed-in user as far as the engine cares.
type Profile struct {
	UserID string
	Email  string
}

// Provider is the identity contract. CurrentUserID reports the signed-in user
// id, with ok=false for anonymous sessions. OnAuthChange registers a callback
// invoked with the new profile (nil on sign-out) on every transition; the
// returned func unsubscribes.
type Provider interface {
	CurrentUserID() (string, bool)
	OnAuthChange(fn func(*Profile)) (unsubscribe func())
}

// StaticProvider is a settable in-memory Provider for tests and local tools.
type StaticProvider struct {
	mu      sync.RWMutex
	profile *Profile
	subs    map[int]func(*Profile)
	nextID  int
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{subs: make(map[int]func(*Profile))}
}

func (p *StaticProvider) CurrentUserID() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return "", false
	}
	return p.profile.UserID, true
}

func (p *StaticProvider) OnAuthChange(fn func(*Profile)) func() {
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

// SignIn sets the current profile and notifies subscribers.
func (p *StaticProvider) SignIn(profile Profile) {
	p.mu.Lock()
	p.profile = &profile
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(&profile)
	}
}

// SignOut clears the current profile and notifies subscribers with nil.
func (p *StaticProvider) SignOut() {
	p.mu.Lock()
	p.profile = nil
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

func (p *StaticProvider) snapshotSubs() []func(*Profile) {
	out := make([]func(*Profile), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}
