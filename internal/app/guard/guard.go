// Package guard implements the Rate & Cooldown Guard (spec.md §4.6):
// per-route token buckets plus a per-actor delegated-agent bucket, with an
// optional auto-cooldown hook.
package guard

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// RoutePerMinute is the per-route budget table from spec.md §4.6.
var RoutePerMinute = map[string]int{
	"events.feed":        600,
	"batches":            300,
	"firings":            300,
	"_default":           120,
}

// AgentPerMinute is the per-actor delegated-agent budget (spec.md §4.6).
const AgentPerMinute = 90

// CooldownHook is invoked when a delegated agent's bucket is exhausted and
// auto-cooldown is enabled, with the agent client id and the end of the
// cooldown (spec.md §6.5 AUTO_COOLDOWN_MINUTES). Defined as an external
// collaborator so the guard package stays decoupled from agentcommerce.
// The hook wired in cmd/server/main.go logs a warning; it does not suspend
// the agent client.
type CooldownHook func(agentClientID string, until time.Time)

// Guard enforces the rate buckets described above, built on
// golang.org/x/time/rate (teacher: infrastructure/ratelimit/ratelimit.go).
type Guard struct {
	mu                 sync.Mutex
	routeBuckets       map[string]*rate.Limiter
	actorBuckets       map[string]*rate.Limiter
	autoCooldown       bool
	autoCooldownFor    time.Duration
	onAgentSuspend     CooldownHook
}

// New constructs a Guard. autoCooldown/autoCooldownFor mirror
// AUTO_COOLDOWN_ON_RATE_LIMIT / AUTO_COOLDOWN_MINUTES (spec.md §6.5).
func New(autoCooldown bool, autoCooldownFor time.Duration, onAgentSuspend CooldownHook) *Guard {
	return &Guard{
		routeBuckets:    make(map[string]*rate.Limiter),
		actorBuckets:    make(map[string]*rate.Limiter),
		autoCooldown:    autoCooldown,
		autoCooldownFor: autoCooldownFor,
		onAgentSuspend:  onAgentSuspend,
	}
}

func (g *Guard) routeLimiter(routeFamily string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if lim, ok := g.routeBuckets[routeFamily]; ok {
		return lim
	}
	perMinute, ok := RoutePerMinute[routeFamily]
	if !ok {
		perMinute = RoutePerMinute["_default"]
	}
	lim := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	g.routeBuckets[routeFamily] = lim
	return lim
}

func (g *Guard) actorLimiter(actorKey string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if lim, ok := g.actorBuckets[actorKey]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(float64(AgentPerMinute)/60.0), AgentPerMinute)
	g.actorBuckets[actorKey] = lim
	return lim
}

// AllowRoute checks the per-route bucket for routeFamily (e.g.
// "events.feed", "batches", or any other route name which falls back to
// the default 120/min budget).
func (g *Guard) AllowRoute(routeFamily string) *apperrors.ServiceError {
	if g.routeLimiter(routeFamily).Allow() {
		return nil
	}
	return apperrors.RateLimited(1000)
}

// AllowAgent checks the per-actor delegated-agent bucket. When exhausted
// and auto-cooldown is enabled, it invokes the suspension hook for
// agentClientID.
func (g *Guard) AllowAgent(agentClientID string) *apperrors.ServiceError {
	if g.actorLimiter(agentClientID).Allow() {
		return nil
	}
	if g.autoCooldown && g.onAgentSuspend != nil {
		g.onAgentSuspend(agentClientID, time.Now().Add(g.autoCooldownFor))
	}
	return apperrors.RateLimited(int64(g.autoCooldownFor / time.Millisecond))
}
