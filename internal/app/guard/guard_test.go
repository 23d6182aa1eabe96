package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRoute_DefaultBudgetExhausts(t *testing.T) {
	g := New(false, 0, nil)
	for i := 0; i < 120; i++ {
		if err := g.AllowRoute("reservations.create"); err != nil {
			t.Fatalf("unexpected rate limit at request %d: %v", i, err)
		}
	}
	err := g.AllowRoute("reservations.create")
	assert.NotNil(t, err)
	assert.Equal(t, "RATE_LIMITED", string(err.Code))
}

func TestAllowAgent_TriggersAutoCooldown(t *testing.T) {
	var suspendedUntil time.Time
	var suspendedClient string
	g := New(true, 30*time.Minute, func(agentClientID string, until time.Time) {
		suspendedClient = agentClientID
		suspendedUntil = until
	})

	for i := 0; i < AgentPerMinute; i++ {
		require := g.AllowAgent("agent-1")
		if require != nil {
			t.Fatalf("unexpected rate limit at request %d", i)
		}
	}
	err := g.AllowAgent("agent-1")
	assert.NotNil(t, err)
	assert.Equal(t, "agent-1", suspendedClient)
	assert.True(t, suspendedUntil.After(time.Now()))
}
