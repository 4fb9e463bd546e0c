package main

import "github.com/akeen90/nutrasafe-beta-sub009/internal/remote"

// staticAuthProvider implements remote.AuthProvider for the CLI, where a
// single process run always belongs to one signed-in user and the
// generation never changes mid-run. A long-lived client embedding this
// module would instead wire an AuthProvider backed by its own sign-in
// flow; this one exists so pullAllData's auth-generation guard has a real
// collaborator to run against outside of tests.
type staticAuthProvider struct {
	userID     string
	generation int64
}

func newStaticAuthProvider(userID string) *staticAuthProvider {
	return &staticAuthProvider{userID: userID, generation: 1}
}

func (p *staticAuthProvider) CurrentUserID() (string, bool) {
	if p.userID == "" {
		return "", false
	}
	return p.userID, true
}

func (p *staticAuthProvider) CaptureAuthState() remote.AuthToken {
	return remote.AuthToken{UserID: p.userID, Generation: p.generation}
}

func (p *staticAuthProvider) CheckUnchanged(token remote.AuthToken) error {
	if token.UserID != p.userID || token.Generation != p.generation {
		return remote.ErrAuthChanged
	}
	return nil
}

func (p *staticAuthProvider) Subscribe() (<-chan remote.AuthEvent, func()) {
	ch := make(chan remote.AuthEvent)
	return ch, func() {}
}
