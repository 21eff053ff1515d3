package budget

import (
	"testing"
	"time"

	"github.com/opsmind/intelplane/internal/config"
	"github.com/opsmind/intelplane/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, cfg config.BudgetConfig) (*Pool, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	p := NewPool("analysis", cfg)
	p.now = func() time.Time { return now }
	p.resetAt = now.Add(cfg.Window)
	return p, &now
}

func TestAdmitStopsAtLimit(t *testing.T) {
	p, _ := testPool(t, config.BudgetConfig{Limit: 100, Window: time.Hour, ReservationPct: 0.10})

	for i := 0; i < 100; i++ {
		require.True(t, p.Admit(models.PriorityMedium), "request %d", i+1)
	}
	assert.False(t, p.Admit(models.PriorityMedium), "101st normal request must be rejected")
}

func TestElevatedPriorityUsesReservedMargin(t *testing.T) {
	p, _ := testPool(t, config.BudgetConfig{Limit: 100, Window: time.Hour, ReservationPct: 0.10})

	for i := 0; i < 100; i++ {
		require.True(t, p.Admit(models.PriorityMedium))
	}

	assert.False(t, p.Admit(models.PriorityLow))
	assert.True(t, p.Admit(models.PriorityHigh), "high priority draws from the reserved margin")
	assert.True(t, p.Admit(models.PriorityCritical))

	// The margin is 10 units; 8 more elevated admissions drain it.
	for i := 0; i < 8; i++ {
		require.True(t, p.Admit(models.PriorityCritical))
	}
	assert.False(t, p.Admit(models.PriorityCritical), "margin exhausted")
}

func TestWindowReset(t *testing.T) {
	p, now := testPool(t, config.BudgetConfig{Limit: 2, Window: time.Hour, ReservationPct: 0})

	require.True(t, p.Admit(models.PriorityMedium))
	require.True(t, p.Admit(models.PriorityMedium))
	require.False(t, p.Admit(models.PriorityMedium))

	*now = now.Add(time.Hour + time.Minute)
	assert.True(t, p.Admit(models.PriorityMedium), "window elapsed, pool refilled")
}

func TestOperatorReset(t *testing.T) {
	p, _ := testPool(t, config.BudgetConfig{Limit: 1, Window: time.Hour, ReservationPct: 0})

	require.True(t, p.Admit(models.PriorityMedium))
	require.False(t, p.Admit(models.PriorityMedium))

	p.Reset()
	assert.True(t, p.Admit(models.PriorityMedium))
}

func TestStatusStates(t *testing.T) {
	p, _ := testPool(t, config.BudgetConfig{Limit: 10, Window: time.Hour, ReservationPct: 0})

	assert.Equal(t, "healthy", p.Status().State)

	for i := 0; i < 8; i++ {
		require.True(t, p.Admit(models.PriorityMedium))
	}
	assert.Equal(t, "near-limit", p.Status().State)

	p.Admit(models.PriorityMedium)
	p.Admit(models.PriorityMedium)
	status := p.Status()
	assert.Equal(t, "exhausted", status.State)
	assert.Equal(t, 0, status.Remaining)
}

func TestManagerSharesPoolPerName(t *testing.T) {
	m := NewManager(config.BudgetConfig{Limit: 5, Window: time.Hour})

	a := m.Pool("analysis")
	assert.Same(t, a, m.Pool("analysis"))
	assert.NotSame(t, a, m.Pool("reports"))
	assert.Len(t, m.Statuses(), 2)
}
