// Package gate validates a user-supplied API key before the workspace opens.
package gate

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
)

// KeyValidator performs the single read-only validation call.
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) error
}

// State is an immutable view of the gate.
type State struct {
	Authenticated bool
	Validating    bool
	Err           *domain.Error
}

// Gate holds one session's credential. The credential is never persisted.
type Gate struct {
	validator KeyValidator
	logger    zerolog.Logger

	mu         sync.Mutex
	credential string
	validating bool
	err        *domain.Error
}

func New(validator KeyValidator, logger zerolog.Logger) *Gate {
	return &Gate{validator: validator, logger: logger}
}

// Submit validates key and, on success, stores it as the session credential.
// The returned error is the same *domain.Error recorded in the state.
func (g *Gate) Submit(ctx context.Context, key string) (State, error) {
	key = strings.TrimSpace(key)

	g.mu.Lock()
	if g.validating {
		st := g.snapshotLocked()
		g.mu.Unlock()
		return st, domain.Busy()
	}
	if key == "" {
		g.err = domain.Validation(domain.CodeKeyRequired)
		st := g.snapshotLocked()
		g.mu.Unlock()
		return st, st.Err
	}
	g.validating = true
	g.err = nil
	g.mu.Unlock()

	err := g.validate(ctx, key)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.validating = false
	if err != nil {
		g.err = domain.AsError(err)
		g.logger.Info().Str("kind", string(g.err.Kind)).Str("code", g.err.Code).Msg("gate: key rejected")
		return g.snapshotLocked(), g.err
	}
	g.credential = key
	g.logger.Info().Msg("gate: key accepted")
	return g.snapshotLocked(), nil
}

// validate converts a panicking validator into an unexpected error so the
// validating flag is always released.
func (g *Gate) validate(ctx context.Context, key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.Recovered(r)
		}
	}()
	return g.validator.ValidateKey(ctx, key)
}

// Credential returns the validated key, if any.
func (g *Gate) Credential() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.credential, g.credential != ""
}

// Logout drops the credential and any error.
func (g *Gate) Logout() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.credential = ""
	g.err = nil
	return g.snapshotLocked()
}

func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Gate) snapshotLocked() State {
	return State{
		Authenticated: g.credential != "",
		Validating:    g.validating,
		Err:           g.err,
	}
}
