// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State is the last-known availability of the embedding service.
type State int32

const (
	// StateUnknown is the boot state, before any probe or call has run
	StateUnknown State = iota
	// StateAvailable means the last probe or call succeeded
	StateAvailable
	// StateUnavailable means the last probe or call failed
	StateUnavailable
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Availability tracks the service state across requests. It is best-effort:
// a stale read costs one redundant probe or one avoidable attempt, never an
// incorrect result, so a single atomic is all the synchronization needed.
// Inject it rather than sharing a package-level value so degraded-mode
// behavior stays deterministic in tests.
type Availability struct {
	state atomic.Int32
}

// NewAvailability returns a tracker in the Unknown state.
func NewAvailability() *Availability {
	return &Availability{}
}

// Get returns the current state
func (a *Availability) Get() State {
	return State(a.state.Load())
}

// Set records a new state
func (a *Availability) Set(s State) {
	a.state.Store(int32(s))
}

// Gateway mediates all calls to the embedding service. It never returns an
// error: every failure collapses to a "no vectors" outcome and flips the
// availability state, and callers proceed in degraded mode.
type Gateway struct {
	client       Client
	availability *Availability
	probeTimeout time.Duration
	batchTimeout time.Duration
	logger       zerolog.Logger
}

// GatewayConfig holds gateway construction options
type GatewayConfig struct {
	Client       Client
	Availability *Availability // optional; a fresh Unknown tracker when nil
	ProbeTimeout time.Duration // liveness probe bound, default 2s
	BatchTimeout time.Duration // batch embed bound, default 15s
	Logger       zerolog.Logger
}

// NewGateway creates a new embedding gateway
func NewGateway(cfg GatewayConfig) *Gateway {
	availability := cfg.Availability
	if availability == nil {
		availability = NewAvailability()
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 15 * time.Second
	}
	return &Gateway{
		client:       cfg.Client,
		availability: availability,
		probeTimeout: probeTimeout,
		batchTimeout: batchTimeout,
		logger:       cfg.Logger,
	}
}

// State returns the last-known availability of the embedding service.
func (g *Gateway) State() State {
	return g.availability.Get()
}

// Dimensions returns the vector dimensionality of the underlying provider.
func (g *Gateway) Dimensions() int {
	if g.client == nil {
		return 0
	}
	return g.client.Dimensions()
}

// EmbedAll embeds the given texts in one batch call. The second return is
// false when no vectors could be produced; there is no error case. Empty and
// whitespace-only inputs yield no vectors.
//
// When the service is Unknown or Unavailable a cheap liveness probe runs
// first, so a transient outage is re-checked instead of sticky-failing. Once
// probed Available, calls go straight to the batch endpoint and only flip
// back to Unavailable on an actual failure.
func (g *Gateway) EmbedAll(ctx context.Context, texts []string) ([][]float32, bool) {
	if g == nil || g.client == nil || len(texts) == 0 {
		return nil, false
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
	}

	if g.availability.Get() != StateAvailable {
		probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
		err := g.client.Health(probeCtx)
		cancel()
		if err != nil {
			g.availability.Set(StateUnavailable)
			g.logger.Debug().Err(err).Msg("Embedding service probe failed, staying in degraded mode")
			return nil, false
		}
		g.availability.Set(StateAvailable)
		g.logger.Info().Msg("Embedding service is available")
	}

	batchCtx, cancel := context.WithTimeout(ctx, g.batchTimeout)
	defer cancel()

	vectors, err := g.client.Embed(batchCtx, texts)
	if err != nil {
		g.availability.Set(StateUnavailable)
		g.logger.Warn().Err(err).Msg("Embedding service became unavailable")
		return nil, false
	}

	return vectors, true
}

// EmbedOne embeds a single text. Returns nil, false when no vector is
// available.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, bool) {
	vectors, ok := g.EmbedAll(ctx, []string{text})
	if !ok || len(vectors) == 0 {
		return nil, false
	}
	return vectors[0], true
}
