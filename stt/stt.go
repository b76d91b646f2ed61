// Package stt provides the speech-to-text engine boundary and its
// implementations. The engines themselves are external collaborators;
// this package only owns the contract.
package stt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when the engine cannot be used at all:
// missing binary, missing model, missing credentials, load failure.
var ErrUnavailable = errors.New("transcription engine unavailable")

// Result represents the outcome of a transcription. An empty Text with a
// nil error is the no-speech marker, not a failure.
type Result struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Duration time.Duration `json:"duration"` // engine processing time
}

// Provider defines the interface for speech-to-text engines.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// DisplayName returns the human-readable provider name.
	DisplayName() string

	// IsLocal returns true if the provider runs locally without API calls.
	IsLocal() bool

	// IsReady returns true if the provider can transcribe right now.
	IsReady() bool

	// Transcribe converts audio samples to text.
	// samples: PCM float32 at 16000 Hz. language: source language code,
	// empty or "auto" for auto-detect. It must not retain samples after
	// returning.
	Transcribe(ctx context.Context, samples []float32, language string) (*Result, error)

	// Close releases resources held by the provider.
	Close() error
}

// Registry holds registered STT providers.
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	if _, ok := r.providers[p.Name()]; !ok {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// List returns all registered providers in registration order.
func (r *Registry) List() []Provider {
	result := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.providers[name])
	}
	return result
}

// Pick returns the named provider if it is ready, otherwise the first
// ready provider, otherwise nil.
func (r *Registry) Pick(name string) Provider {
	if p := r.Get(name); p != nil && p.IsReady() {
		return p
	}
	for _, p := range r.List() {
		if p.IsReady() {
			return p
		}
	}
	return nil
}

// Close releases all providers. Every provider is closed even when an
// earlier one fails; the errors are joined.
func (r *Registry) Close() error {
	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
