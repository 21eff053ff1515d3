// Package budget implements named admission-control pools.
//
// A pool caps how many requests are admitted per reset window,
// independent of which provider eventually serves them. Admission is a
// single atomic check-and-consume: two concurrent requests can never
// both pass a check that is jointly invalid.
//
// A reservation margin above the normal limit is held back for high and
// critical priority requests, so urgent work still gets through when the
// pool is exhausted for everyone else.
package budget

import (
	"sync"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Pool is one named admission pool.
type Pool struct {
	mu   sync.Mutex
	name string
	cfg  config.BudgetConfig

	consumed int
	resetAt  time.Time

	now func() time.Time
}

// NewPool creates a pool that starts a fresh window immediately.
func NewPool(name string, cfg config.BudgetConfig) *Pool {
	p := &Pool{
		name: name,
		cfg:  cfg,
		now:  time.Now,
	}
	p.resetAt = p.now().Add(cfg.Window)
	return p
}

// reserved is the high-priority headroom above the normal limit.
func (p *Pool) reserved() int {
	return int(float64(p.cfg.Limit) * p.cfg.ReservationPct)
}

// Admit atomically checks capacity and consumes one unit. Normal
// priority admits up to the configured limit; elevated priority may
// additionally consume the reserved margin. Returns false when the
// request must be rejected with BudgetExhausted.
func (p *Pool) Admit(priority models.Priority) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.maybeReset()

	limit := p.cfg.Limit
	if priority.Elevated() {
		limit += p.reserved()
	}
	if p.consumed >= limit {
		log.Debug().
			Str("pool", p.name).
			Str("priority", string(priority)).
			Int("consumed", p.consumed).
			Msg("budget admission rejected")
		return false
	}
	p.consumed++
	return true
}

// Status returns a snapshot of the pool.
func (p *Pool) Status() models.BudgetStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.maybeReset()

	remaining := p.cfg.Limit - p.consumed
	if remaining < 0 {
		remaining = 0
	}
	utilization := float64(p.consumed) / float64(p.cfg.Limit)

	state := "healthy"
	switch {
	case p.consumed >= p.cfg.Limit:
		state = "exhausted"
	case utilization >= 0.8:
		state = "near-limit"
	}

	return models.BudgetStatus{
		Pool:        p.name,
		Limit:       p.cfg.Limit,
		Consumed:    p.consumed,
		Remaining:   remaining,
		Utilization: utilization,
		State:       state,
	}
}

// Reset clears the pool immediately, starting a fresh window. Used by
// the operator reset endpoint.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumed = 0
	p.resetAt = p.now().Add(p.cfg.Window)
	log.Info().Str("pool", p.name).Msg("budget pool reset")
}

// maybeReset rolls the window forward when it has elapsed. Caller holds
// the lock.
func (p *Pool) maybeReset() {
	if p.cfg.Window <= 0 {
		return
	}
	if now := p.now(); !now.Before(p.resetAt) {
		p.consumed = 0
		p.resetAt = now.Add(p.cfg.Window)
	}
}

// ── Manager ─────────────────────────────────────────────────

// Manager holds the named pools. The core uses one shared pool per
// logical service; more pools can be registered for sub-systems.
type Manager struct {
	mu    sync.Mutex
	cfg   config.BudgetConfig
	pools map[string]*Pool
}

// NewManager creates an empty pool manager.
func NewManager(cfg config.BudgetConfig) *Manager {
	return &Manager{
		cfg:   cfg,
		pools: make(map[string]*Pool),
	}
}

// Pool returns the named pool, creating it on first use.
func (m *Manager) Pool(name string) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[name]
	if !ok {
		p = NewPool(name, m.cfg)
		m.pools[name] = p
	}
	return p
}

// Statuses returns a snapshot of every known pool.
func (m *Manager) Statuses() []models.BudgetStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.BudgetStatus, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Status())
	}
	return out
}
