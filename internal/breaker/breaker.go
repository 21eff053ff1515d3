// Package breaker implements the per-provider circuit breaker.
//
// Each provider gets one Breaker, shared by every in-flight request.
// The resilience executor is the only writer: it calls Allow before an
// attempt and exactly one of RecordSuccess/RecordFailure per outcome.
//
// State machine:
//   - closed: all attempts allowed; consecutive failures are counted,
//     reaching the threshold opens the circuit.
//   - open: all attempts rejected until the cool-down elapses, then the
//     next Allow claims the single half-open probe.
//   - half_open: exactly one probe in flight; success closes the circuit
//     and resets the counter, failure reopens it with a doubled
//     cool-down, bounded by the configured cap.
package breaker

import (
	"sync"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Breaker tracks the failure state of one provider.
type Breaker struct {
	mu       sync.Mutex
	provider string
	cfg      config.BreakerConfig

	state        models.BreakerState
	failures     int
	openedAt     time.Time
	coolDown     time.Duration
	probeClaimed bool

	now func() time.Time
}

// New creates a closed breaker for the named provider.
func New(provider string, cfg config.BreakerConfig) *Breaker {
	return &Breaker{
		provider: provider,
		cfg:      cfg,
		state:    models.BreakerClosed,
		coolDown: cfg.CoolDown,
		now:      time.Now,
	}
}

// Allow reports whether an attempt against the provider may proceed.
// When the cool-down of an open circuit has elapsed, Allow atomically
// transitions to half_open and claims the probe, so concurrent callers
// never send more than one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case models.BreakerClosed:
		return true
	case models.BreakerOpen:
		if b.now().Sub(b.openedAt) < b.coolDown {
			return false
		}
		b.state = models.BreakerHalfOpen
		b.probeClaimed = true
		log.Debug().Str("provider", b.provider).Msg("circuit half-open, probing")
		return true
	case models.BreakerHalfOpen:
		// One probe at a time.
		if b.probeClaimed {
			return false
		}
		b.probeClaimed = true
		return true
	}
	return false
}

// RecordSuccess clears the failure count and closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == models.BreakerHalfOpen {
		log.Info().Str("provider", b.provider).Msg("circuit closed after successful probe")
	}
	b.state = models.BreakerClosed
	b.failures = 0
	b.probeClaimed = false
	b.coolDown = b.cfg.CoolDown
}

// RecordFailure counts a failed attempt. In closed state, reaching the
// failure threshold opens the circuit; in half_open, the failed probe
// reopens it with a doubled cool-down.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++

	switch b.state {
	case models.BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.open(b.coolDown)
		}
	case models.BreakerHalfOpen:
		next := b.coolDown * 2
		if next > b.cfg.CoolDownCap {
			next = b.cfg.CoolDownCap
		}
		b.open(next)
	}
}

// open transitions to the open state. Caller holds the lock.
func (b *Breaker) open(coolDown time.Duration) {
	b.state = models.BreakerOpen
	b.openedAt = b.now()
	b.coolDown = coolDown
	b.probeClaimed = false
	log.Warn().
		Str("provider", b.provider).
		Int("failures", b.failures).
		Dur("cool_down", coolDown).
		Msg("circuit opened")
}

// State returns the current circuit state. A cooled-down open circuit
// stays open until Allow claims the probe.
func (b *Breaker) State() models.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status returns a snapshot for status endpoints.
func (b *Breaker) Status() models.BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.BreakerStatus{
		Provider:            b.provider,
		State:               b.state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
		CoolDown:            b.coolDown.String(),
	}
}

// ── Registry ────────────────────────────────────────────────

// Registry holds one breaker per provider id. Breakers are created
// lazily and shared by reference across requests.
type Registry struct {
	mu       sync.Mutex
	cfg      config.BreakerConfig
	breakers map[string]*Breaker
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(cfg config.BreakerConfig) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// For returns the breaker for the provider, creating it on first use.
func (r *Registry) For(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = New(provider, r.cfg)
		r.breakers[provider] = b
	}
	return b
}

// Statuses returns a snapshot of every known breaker.
func (r *Registry) Statuses() []models.BreakerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.BreakerStatus, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Status())
	}
	return out
}
