package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeSpec describes one entry in the declarative whitelist (spec.md
// §4.7: "a whitelist of route strings dispatches each POST to a handler";
// §6.2: "each route declares required scope, admin-only flag, and rollout
// phase"), generalizing the teacher's applications/httpapi/router.go
// {pattern, method, handler} idiom with the scope/phase metadata spec.md
// requires.
type routeSpec struct {
	name          string // route string, e.g. "reservations.create"
	pattern       string
	method        string
	requiredScope string
	adminOnly     bool
	minLibPhase   string
	routeFamily   string // token-bucket family (spec.md §4.6)
	handler       http.HandlerFunc
}

// NewRouter builds the gorilla/mux router for every route spec.md §6.2
// names. The router is wrapped request-id -> access-log -> recovery
// (outermost first) and each route's handler in its own rate-guard check
// (spec.md §4.7 data flow). Actor resolution and
// route-scope authorization happen inside each handler because some routes
// need the parsed body before the full actor/ownership check can run.
func NewRouter(d *Deps) http.Handler {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	for _, rt := range routeSpecs(d) {
		router.Handle(rt.pattern, withRateGuard(d.Guard, rt.routeFamily)(rt.handler)).Methods(rt.method)
	}

	chain := func(h http.Handler) http.Handler {
		return withRequestID(withAccessLog(d.Log)(withRecovery(d.Log)(h)))
	}
	return chain(router)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeOK(w, requestIDFrom(r.Context()), http.StatusOK, map[string]string{"status": "ok"})
}

// routeSpecs is the whitelist spec.md §6.2 enumerates: reservations.*,
// agent.*, library.*.
func routeSpecs(d *Deps) []routeSpec {
	return []routeSpec{
		{name: "reservations.create", pattern: "/v1/reservations.create", method: http.MethodPost, requiredScope: "reservations:write", routeFamily: "_default", handler: handleReservationCreate(d)},
		{name: "reservations.get", pattern: "/v1/reservations.get", method: http.MethodPost, requiredScope: "reservations:read", routeFamily: "_default", handler: handleReservationGet(d)},
		{name: "reservations.list", pattern: "/v1/reservations.list", method: http.MethodPost, requiredScope: "reservations:read", routeFamily: "_default", handler: handleReservationList(d)},
		{name: "reservations.checkIn", pattern: "/v1/reservations.checkIn", method: http.MethodPost, requiredScope: "reservations:write", routeFamily: "_default", handler: handleReservationCheckIn(d)},
		{name: "reservations.lookupArrival", pattern: "/v1/reservations.lookupArrival", method: http.MethodPost, requiredScope: "reservations:read", adminOnly: true, routeFamily: "_default", handler: handleReservationLookupArrival(d)},
		{name: "reservations.rotateArrivalToken", pattern: "/v1/reservations.rotateArrivalToken", method: http.MethodPost, requiredScope: "reservations:write", adminOnly: true, routeFamily: "_default", handler: handleReservationRotateArrivalToken(d)},
		{name: "reservations.pickupWindow", pattern: "/v1/reservations.pickupWindow", method: http.MethodPost, requiredScope: "reservations:write", routeFamily: "_default", handler: handleReservationPickupWindow(d)},
		{name: "reservations.queueFairness", pattern: "/v1/reservations.queueFairness", method: http.MethodPost, requiredScope: "reservations:write", adminOnly: true, routeFamily: "_default", handler: handleReservationQueueFairness(d)},
		{name: "reservations.update", pattern: "/v1/reservations.update", method: http.MethodPost, requiredScope: "reservations:write", routeFamily: "_default", handler: handleReservationUpdateStatus(d)},
		{name: "reservations.assignStation", pattern: "/v1/reservations.assignStation", method: http.MethodPost, requiredScope: "reservations:write", adminOnly: true, routeFamily: "_default", handler: handleReservationAssignStation(d)},
		{name: "reservations.exportContinuity", pattern: "/v1/reservations.exportContinuity", method: http.MethodPost, requiredScope: "reservations:read", routeFamily: "_default", handler: handleReservationExportContinuity(d)},

		{name: "agent.quote", pattern: "/v1/agent.quote", method: http.MethodPost, requiredScope: "agent:write", routeFamily: "_default", handler: handleAgentQuote(d)},
		{name: "agent.reserve", pattern: "/v1/agent.reserve", method: http.MethodPost, requiredScope: "agent:write", routeFamily: "_default", handler: handleAgentReserve(d)},
		{name: "agent.status", pattern: "/v1/agent.status", method: http.MethodPost, requiredScope: "agent:read", routeFamily: "_default", handler: handleAgentStatus(d)},
		{name: "agent.pay", pattern: "/v1/agent.pay", method: http.MethodPost, requiredScope: "agent:write", routeFamily: "_default", handler: handleAgentPay(d)},
		{name: "agent.order.get", pattern: "/v1/agent.order.get", method: http.MethodPost, requiredScope: "agent:read", routeFamily: "_default", handler: handleAgentOrderGet(d)},
		{name: "agent.orders.list", pattern: "/v1/agent.orders.list", method: http.MethodPost, requiredScope: "agent:read", routeFamily: "_default", handler: handleAgentOrdersList(d)},
		{name: "agent.revenue.summary", pattern: "/v1/agent.revenue.summary", method: http.MethodPost, requiredScope: "agent:read", adminOnly: true, routeFamily: "_default", handler: handleAgentRevenueSummary(d)},
		{name: "agent.requests.triage", pattern: "/v1/agent.requests.triage", method: http.MethodPost, requiredScope: "agent:write", routeFamily: "_default", handler: handleAgentRequestsTriage(d)},
		{name: "agent.requests.decide", pattern: "/v1/agent.requests.decide", method: http.MethodPost, requiredScope: "agent:write", adminOnly: true, routeFamily: "_default", handler: handleAgentRequestsDecide(d)},
		{name: "agent.requests.validateX1C", pattern: "/v1/agent.requests.validateX1C", method: http.MethodPost, requiredScope: "agent:write", routeFamily: "_default", handler: handleAgentRequestsValidateX1C(d)},
		{name: "agent.terms.get", pattern: "/v1/agent.terms.get", method: http.MethodPost, requiredScope: "agent:read", routeFamily: "_default", handler: handleAgentTermsGet(d)},
		{name: "agent.terms.accept", pattern: "/v1/agent.terms.accept", method: http.MethodPost, requiredScope: "agent:write", routeFamily: "_default", handler: handleAgentTermsAccept(d)},
		{name: "agent.account.get", pattern: "/v1/agent.account.get", method: http.MethodPost, requiredScope: "agent:read", adminOnly: true, routeFamily: "_default", handler: handleAgentAccountGet(d)},
		{name: "agent.account.update", pattern: "/v1/agent.account.update", method: http.MethodPost, requiredScope: "agent:write", adminOnly: true, routeFamily: "_default", handler: handleAgentAccountUpdate(d)},

		{name: "library.loans.checkout", pattern: "/v1/library.loans.checkout", method: http.MethodPost, requiredScope: "library:write", minLibPhase: "phase_2_member_writes", routeFamily: "_default", handler: handleLibraryCheckout(d)},
		{name: "library.loans.checkIn", pattern: "/v1/library.loans.checkIn", method: http.MethodPost, requiredScope: "library:write", minLibPhase: "phase_2_member_writes", routeFamily: "_default", handler: handleLibraryCheckIn(d)},
		{name: "library.loans.markLost", pattern: "/v1/library.loans.markLost", method: http.MethodPost, requiredScope: "library:write", adminOnly: true, minLibPhase: "phase_3_admin_full", routeFamily: "_default", handler: handleLibraryMarkLost(d)},
		{name: "library.loans.assessReplacementFee", pattern: "/v1/library.loans.assessReplacementFee", method: http.MethodPost, requiredScope: "library:write", adminOnly: true, minLibPhase: "phase_3_admin_full", routeFamily: "_default", handler: handleLibraryAssessReplacementFee(d)},
		{name: "library.loans.listMine", pattern: "/v1/library.loans.listMine", method: http.MethodPost, requiredScope: "library:read", minLibPhase: "phase_1_read_only", routeFamily: "_default", handler: handleLibraryListMine(d)},
		{name: "library.items.overrideStatus", pattern: "/v1/library.items.overrideStatus", method: http.MethodPost, requiredScope: "library:write", adminOnly: true, minLibPhase: "phase_3_admin_full", routeFamily: "_default", handler: handleLibraryOverrideItemStatus(d)},
	}
}
