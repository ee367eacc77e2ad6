// Package studio runs the two-step generation chain for one session and owns
// the state the page renders.
package studio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"imagestudio/internal/domain"
)

// MaxPromptLength is counted in characters, not bytes.
const MaxPromptLength = 1000

var (
	validate   = validator.New()
	promptRule = fmt.Sprintf("max=%d", MaxPromptLength)
)

// Stage tracks where the generation chain is.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageRefining     Stage = "refining"
	StageSynthesizing Stage = "synthesizing"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Provider is the pair of remote calls the chain is made of.
type Provider interface {
	RefinePrompt(ctx context.Context, key string, images []string, prompt string) (string, error)
	GenerateImage(ctx context.Context, key string, prompt string) (string, error)
}

// State is a snapshot. Callers get their own copy of Images.
type State struct {
	Images       []string
	Prompt       string
	GeneratedURL string
	Generating   bool
	Stage        Stage
	Err          *domain.Error
}

// Workspace is one session's orchestrator. The mutex is never held across a
// provider call.
type Workspace struct {
	provider Provider
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
	// epoch changes on Reset so a generation started before it cannot
	// publish into the cleared workspace.
	epoch uint64
}

func NewWorkspace(provider Provider, logger zerolog.Logger) *Workspace {
	return &Workspace{
		provider: provider,
		logger:   logger,
		state:    State{Stage: StageIdle},
	}
}

func (w *Workspace) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// AddImages appends data URLs in order. One invalid entry rejects the batch.
func (w *Workspace) AddImages(dataURLs ...string) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, u := range dataURLs {
		if !IsImageDataURL(u) {
			return w.failLocked(domain.Validation(domain.CodeInvalidImage))
		}
	}
	if len(dataURLs) > 0 {
		w.state.Images = append(slices.Clone(w.state.Images), dataURLs...)
	}
	return w.snapshotLocked(), nil
}

// RemoveImage drops the image at index, keeping the others in order.
func (w *Workspace) RemoveImage(index int) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < 0 || index >= len(w.state.Images) {
		return w.failLocked(domain.Validation(domain.CodeInvalidIndex))
	}
	w.state.Images = slices.Delete(slices.Clone(w.state.Images), index, index+1)
	return w.snapshotLocked(), nil
}

// SetPrompt replaces the prompt text.
func (w *Workspace) SetPrompt(prompt string) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := validate.Var(prompt, promptRule); err != nil {
		return w.failLocked(domain.Validation(domain.CodePromptTooLong))
	}
	w.state.Prompt = prompt
	return w.snapshotLocked(), nil
}

// RecordError makes err the current error without touching anything else.
// Used for failures detected before a workspace operation is reached.
func (w *Workspace) RecordError(err error) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Err = domain.AsError(err)
	return w.snapshotLocked()
}

// Reset clears images, prompt, generated image and error together. An
// in-flight generation keeps running but its result is dropped.
func (w *Workspace) Reset() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.epoch++
	stage := StageIdle
	if w.state.Generating {
		stage = w.state.Stage
	}
	w.state = State{Generating: w.state.Generating, Stage: stage}
	return w.snapshotLocked()
}

// Generate refines the prompt from the uploaded images, then renders the
// refined prompt. On failure the previous generated image stays in place.
func (w *Workspace) Generate(ctx context.Context, key string) (State, error) {
	w.mu.Lock()
	if w.state.Generating {
		st := w.snapshotLocked()
		w.mu.Unlock()
		return st, domain.Busy()
	}
	if len(w.state.Images) == 0 || strings.TrimSpace(w.state.Prompt) == "" {
		st, err := w.failLocked(domain.Validation(domain.CodeMissingInput))
		w.mu.Unlock()
		return st, err
	}
	images := slices.Clone(w.state.Images)
	prompt := w.state.Prompt
	epoch := w.epoch
	w.state.Generating = true
	w.state.Stage = StageRefining
	w.state.Err = nil
	w.mu.Unlock()

	url, err := w.run(ctx, key, epoch, images, prompt)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Generating = false
	if epoch != w.epoch {
		w.state.Stage = StageIdle
		w.logger.Debug().Msg("studio: discarded generation result after reset")
		return w.snapshotLocked(), nil
	}
	if err != nil {
		de := domain.AsError(err)
		w.state.Err = de
		w.state.Stage = StageFailed
		w.logger.Warn().Err(de.Err).Str("kind", string(de.Kind)).Str("code", de.Code).Msg("studio: generation failed")
		return w.snapshotLocked(), de
	}
	w.state.GeneratedURL = url
	w.state.Stage = StageDone
	w.logger.Info().Int("images", len(images)).Msg("studio: image generated")
	return w.snapshotLocked(), nil
}

func (w *Workspace) run(ctx context.Context, key string, epoch uint64, images []string, prompt string) (url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			url, err = "", domain.Recovered(r)
		}
	}()

	refined, err := w.provider.RefinePrompt(ctx, key, images, prompt)
	if err != nil {
		return "", err
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return "", domain.Unexpected(errors.New("studio: refined prompt is empty"))
	}
	w.advance(epoch, StageSynthesizing)

	url, err = w.provider.GenerateImage(ctx, key, refined)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", domain.Unexpected(errors.New("studio: generated image url is empty"))
	}
	return url, nil
}

func (w *Workspace) advance(epoch uint64, stage Stage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if epoch == w.epoch {
		w.state.Stage = stage
	}
}

func (w *Workspace) failLocked(err *domain.Error) (State, error) {
	w.state.Err = err
	return w.snapshotLocked(), err
}

func (w *Workspace) snapshotLocked() State {
	st := w.state
	st.Images = slices.Clone(w.state.Images)
	return st
}
