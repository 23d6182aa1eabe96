package httpapi

import (
	"net/http"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/actor"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/agentcommerce"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

func agentAuthMode(ac *actor.Context) agentcommerce.AuthMode {
	switch ac.Mode {
	case actor.ModeDelegatedAgent:
		return agentcommerce.AuthModeDelegatedAgent
	case actor.ModePersonalAccess:
		return agentcommerce.AuthModePersonalAccess
	default:
		return agentcommerce.AuthModeSession
	}
}

// requireAgentTerms enforces the terms gate ahead of every non-exempt agent
// route (spec.md §4.2).
func requireAgentTerms(d *Deps, route string, ac *actor.Context) *apperrors.ServiceError {
	key := agentcommerce.TermsAcceptanceKey{UID: ac.UID, Mode: agentAuthMode(ac), TokenOrClient: ac.AgentClientID, Version: d.TermsVersion}
	if key.TokenOrClient == "" {
		key.TokenOrClient = ac.TokenID
	}
	return agentcommerce.RequireTerms(d.Terms, route, agentAuthMode(ac), key)
}

type quoteBody struct {
	QuoteID        string `json:"quoteId"`
	ServiceID      string `json:"serviceId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Currency       string `json:"currency"`
	RiskLevel      string `json:"riskLevel"`
}

// handleAgentQuote backs agent.quote (spec.md §3.5).
func handleAgentQuote(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if svcErr := requireAgentTerms(d, "agent.quote", ac); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		var body quoteBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		if body.QuoteID == "" {
			body.QuoteID = idgen.Hash("agent-quote", ac.UID, body.ServiceID, requestID)
		}
		quote := agentcommerce.NewQuote(body.QuoteID, body.ServiceID, ac.UID, agentAuthMode(ac), ac.AgentClientID,
			body.Quantity, body.UnitPriceCents, body.Currency, agentcommerce.RiskLevel(body.RiskLevel), time.Now().UTC())
		if err := d.AgentCommerce.PutQuote(r.Context(), quote); err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to persist quote", err))
			return
		}
		writeOK(w, requestID, http.StatusCreated, quote)
	}
}

type reserveBody struct {
	QuoteID string `json:"quoteId"`
}

// handleAgentReserve backs agent.reserve (spec.md §4.2).
func handleAgentReserve(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if svcErr := requireAgentTerms(d, "agent.reserve", ac); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		var body reserveBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		quote, found, err := d.AgentCommerce.GetQuote(r.Context(), body.QuoteID)
		if err != nil || !found || quote.UID != ac.UID {
			writeErr(w, requestID, apperrors.NotFound("agentQuote", body.QuoteID))
			return
		}
		resID := agentcommerce.AgentReservationID(ac.UID, body.QuoteID)
		var existing *agentcommerce.AgentReservation
		if prior, found, _ := d.AgentCommerce.GetAgentReservation(r.Context(), resID); found {
			existing = &prior
		}
		newRes, replay, svcErr := agentcommerce.Reserve(quote, existing, time.Now().UTC())
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		if !replay {
			if err := d.AgentCommerce.PutAgentReservation(r.Context(), newRes); err != nil {
				writeErr(w, requestID, apperrors.Internal("failed to persist agent reservation", err))
				return
			}
		}
		status := http.StatusCreated
		if replay {
			status = http.StatusOK
		}
		writeOK(w, requestID, status, newRes)
	}
}

type agentStatusBody struct {
	QuoteID       string `json:"quoteId"`
	ReservationID string `json:"reservationId"`
}

type agentStatusResponse struct {
	QuoteID           string                              `json:"quoteId,omitempty"`
	QuoteStatus       agentcommerce.QuoteStatus           `json:"quoteStatus,omitempty"`
	ReservationID     string                              `json:"reservationId,omitempty"`
	ReservationStatus agentcommerce.AgentReservationStatus `json:"reservationStatus,omitempty"`
	OrderID           string                              `json:"orderId,omitempty"`
	OrderStatus       agentcommerce.OrderStatus           `json:"orderStatus,omitempty"`
}

// handleAgentStatus backs agent.status (spec.md §6.2): a lightweight poll
// of where a quote/reservation sits in the quote->reserve->pay->order
// chain, without requiring the caller to already know an order id.
func handleAgentStatus(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:read")
		if !ok {
			return
		}
		var body agentStatusBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		if body.QuoteID == "" && body.ReservationID == "" {
			writeErr(w, requestID, apperrors.InvalidArgument("quoteId or reservationId is required"))
			return
		}

		resp := agentStatusResponse{}

		if body.QuoteID != "" {
			quote, found, err := d.AgentCommerce.GetQuote(r.Context(), body.QuoteID)
			if err != nil || !found || quote.UID != ac.UID {
				writeErr(w, requestID, apperrors.NotFound("agentQuote", body.QuoteID))
				return
			}
			resp.QuoteID, resp.QuoteStatus = quote.QuoteID, quote.Status
			if body.ReservationID == "" {
				body.ReservationID = agentcommerce.AgentReservationID(quote.UID, quote.QuoteID)
			}
		}

		if body.ReservationID != "" {
			agentRes, found, err := d.AgentCommerce.GetAgentReservation(r.Context(), body.ReservationID)
			if err == nil && found {
				resp.ReservationID, resp.ReservationStatus = agentRes.ReservationID, agentRes.Status
				// Best-effort: only resolves when pay was called without an
				// explicit idempotency key, so order_id derived from
				// reservation_id alone (spec.md §4.2).
				if order, found, err := d.AgentCommerce.GetOrder(r.Context(), agentcommerce.OrderID(ac.UID, body.ReservationID)); err == nil && found {
					resp.OrderID, resp.OrderStatus = order.OrderID, order.Status
				}
			} else if resp.QuoteID == "" {
				writeErr(w, requestID, apperrors.NotFound("agentReservation", body.ReservationID))
				return
			}
		}

		writeOK(w, requestID, http.StatusOK, resp)
	}
}

type payBody struct {
	ReservationID  string `json:"reservationId"`
	IdempotencyKey string `json:"idempotencyKey"`
	AmountCents    int64  `json:"amountCents"`
	Currency       string `json:"currency"`
	Provider       string `json:"provider"`
	PriceID        string `json:"priceId"`
	PrepaidSettled bool   `json:"prepaidSettled"`
}

// handleAgentPay backs agent.pay (spec.md §4.2).
func handleAgentPay(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if svcErr := requireAgentTerms(d, "agent.pay", ac); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		var body payBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		key, svcErr := resolveIdempotencyKey(body.IdempotencyKey, r.Header.Get("X-Idempotency-Key"))
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}

		raw, replay, svcErr := runIdempotent(r.Context(), d.Ledger, "agent.pay", ac.UID, key, requestID, body, "", func() (any, *apperrors.ServiceError) {
			now := time.Now().UTC()

			agentRes, found, err := d.AgentCommerce.GetAgentReservation(r.Context(), body.ReservationID)
			if err != nil || !found {
				return nil, apperrors.NotFound("agentReservation", body.ReservationID)
			}
			quote, found, err := d.AgentCommerce.GetQuote(r.Context(), agentRes.QuoteID)
			if err != nil || !found {
				return nil, apperrors.NotFound("agentQuote", agentRes.QuoteID)
			}

			var account agentcommerce.AgentAccount
			hasAccount := false
			if ac.AgentClientID != "" {
				if acct, found, err := d.AgentCommerce.GetAgentAccount(r.Context(), ac.AgentClientID); err == nil && found {
					account, hasAccount = acct, true
				}
			}

			// Risk check (spec.md §4.2: "delegated mode only").
			if ac.Mode == actor.ModeDelegatedAgent {
				ordersInLastHour := 0
				if recent, err := d.AgentCommerce.ListOrdersByUID(r.Context(), ac.UID, 200); err == nil {
					for _, o := range recent {
						if now.Sub(o.CreatedAt) <= time.Hour {
							ordersInLastHour++
						}
					}
				}
				risk := agentcommerce.CheckRisk(agentcommerce.RiskCheckInput{
					Tier:             quote.RiskLevel,
					OrderAmountCents: body.AmountCents,
					OrdersInLastHour: ordersInLastHour,
					DenialsInLast24h: account.RecentDenialCount24h,
					CooldownUntil:    account.CooldownUntil,
					Now:              now,
				})
				if !risk.Allowed {
					if ac.AgentClientID != "" {
						_, _ = d.AgentCommerce.UpdateAgentAccount(r.Context(), ac.AgentClientID, func(a *agentcommerce.AgentAccount) error {
							a.RecentDenialCount24h++
							if risk.ShouldSuspend {
								until := risk.SuspendUntil
								a.CooldownUntil = &until
							}
							return nil
						})
					}
					return nil, risk.ServiceError
				}
			}

			order := agentcommerce.Pay(&agentRes, agentcommerce.PayInput{
				UID: ac.UID, ReservationID: body.ReservationID, IdempotencyKey: key,
				AmountCents: body.AmountCents, Currency: body.Currency,
				Provider: agentcommerce.PaymentProvider(body.Provider), PriceID: body.PriceID,
				PrepaidSettled: body.PrepaidSettled, Now: now,
			})

			// Independent-agent ledger debit (spec.md §4.2), in the same
			// logical transaction as the order write.
			if hasAccount && account.IndependentEnabled {
				if _, err := d.AgentCommerce.UpdateAgentAccount(r.Context(), ac.AgentClientID, func(a *agentcommerce.AgentAccount) error {
					_, svcErr := agentcommerce.ApplyLedgerDebit(a, order.OrderID, agentcommerce.LedgerDebit{
						SubtotalCents: order.AmountCents,
						Category:      quote.ServiceID,
						Today:         now.Format("2006-01-02"),
					})
					if svcErr != nil {
						return svcErr
					}
					return nil
				}); err != nil {
					if svcErr := apperrors.AsServiceError(err); svcErr != nil {
						return nil, svcErr
					}
					return nil, apperrors.Internal("failed to apply ledger debit", err)
				}
			}

			if err := d.AgentCommerce.PutAgentReservation(r.Context(), agentRes); err != nil {
				return nil, apperrors.Internal("failed to persist agent reservation", err)
			}
			if err := d.AgentCommerce.PutOrder(r.Context(), order); err != nil {
				return nil, apperrors.Internal("failed to persist order", err)
			}
			return order, nil
		})
		if svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		status := http.StatusCreated
		if replay {
			status = http.StatusOK
		}
		writeJSONRaw(w, requestID, status, raw)
	}
}

type agentIDBody struct {
	OrderID string `json:"orderId"`
}

// handleAgentOrderGet backs agent.order.get.
func handleAgentOrderGet(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:read")
		if !ok {
			return
		}
		var body agentIDBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		order, found, err := d.AgentCommerce.GetOrder(r.Context(), body.OrderID)
		if err != nil || !found || (order.UID != ac.UID && !ac.IsStaff) {
			writeErr(w, requestID, apperrors.NotFound("agentOrder", body.OrderID))
			return
		}
		writeOK(w, requestID, http.StatusOK, order)
	}
}

type listOrdersBody struct {
	UID   string `json:"uid"`
	Limit int    `json:"limit"`
}

// handleAgentOrdersList backs agent.orders.list.
func handleAgentOrdersList(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:read")
		if !ok {
			return
		}
		var body listOrdersBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		if body.UID == "" {
			body.UID = ac.UID
		}
		if authRes := actor.Authorize(ac, body.UID, "agent:read", "agentOrder", true); !authRes.OK {
			writeErr(w, requestID, apperrors.New(authRes.Code, authRes.Message, authRes.HTTPStatus))
			return
		}
		limit := body.Limit
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		orders, err := d.AgentCommerce.ListOrdersByUID(r.Context(), body.UID, limit)
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to list orders", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, orders)
	}
}

type revenueSummaryBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleAgentRevenueSummary backs agent.revenue.summary (staff only,
// SPEC_FULL.md §8).
func handleAgentRevenueSummary(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:read")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body revenueSummaryBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		start, err := time.Parse("2006-01-02", body.Start)
		if err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("start must be YYYY-MM-DD"))
			return
		}
		end, err := time.Parse("2006-01-02", body.End)
		if err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("end must be YYYY-MM-DD"))
			return
		}
		if svcErr := agentcommerce.ValidateRevenueRange(start, end); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		rows, err := d.AgentCommerce.ListOrdersInRange(r.Context(), body.Start, body.End)
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to query revenue ledger", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, agentcommerce.RevenueSummary(rows))
	}
}

type triageCommissionBody struct {
	Description string `json:"description"`
}

// handleAgentRequestsTriage backs agent.requests.triage.
func handleAgentRequestsTriage(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if svcErr := requireAgentTerms(d, "agent.requests.triage", ac); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		var body triageCommissionBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		reqID := idgen.Hash("commission-request", ac.UID, requestID)
		req := agentcommerce.TriageCommission(reqID, ac.UID, body.Description)
		writeOK(w, requestID, http.StatusCreated, req)
	}
}

type decideCommissionBody struct {
	RequestID  string `json:"requestId"`
	Accept     bool   `json:"accept"`
	ReasonCode string `json:"reasonCode"`
}

// handleAgentRequestsDecide backs agent.requests.decide (staff only).
// Persistence for commission requests is out of SPEC_FULL.md's named
// collections (spec.md §6.4); callers supply the current request state
// inline since it is re-fetched by the caller's own tracking system.
func handleAgentRequestsDecide(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body struct {
			decideCommissionBody
			Request agentcommerce.CommissionRequest `json:"request"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		req := body.Request
		if svcErr := agentcommerce.DecideCommission(&req, body.Accept, body.ReasonCode); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		writeOK(w, requestID, http.StatusOK, req)
	}
}

type validateX1CBody struct {
	FileType        string     `json:"fileType"`
	MaterialProfile string     `json:"materialProfile"`
	DimensionsMM    [3]float64 `json:"dimensionsMm"`
	Quantity        int        `json:"quantity"`
	Description     string     `json:"description"`
}

// handleAgentRequestsValidateX1C backs agent.requests.validateX1C.
func handleAgentRequestsValidateX1C(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if svcErr := requireAgentTerms(d, "agent.requests.validateX1C", ac); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		var body validateX1CBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		req := agentcommerce.X1CPrintRequest{
			RequestID: idgen.Hash("x1c-print-request", ac.UID, requestID), UID: ac.UID,
			FileType: agentcommerce.X1CFileType(body.FileType), MaterialProfile: agentcommerce.X1CMaterialProfile(body.MaterialProfile),
			DimensionsMM: body.DimensionsMM, Quantity: body.Quantity, Description: body.Description,
		}
		if svcErr := agentcommerce.ValidateX1CPrintRequest(req); svcErr != nil {
			writeErr(w, requestID, svcErr)
			return
		}
		writeOK(w, requestID, http.StatusOK, req)
	}
}

// handleAgentTermsGet backs agent.terms.get (exempt from the terms gate).
func handleAgentTermsGet(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		if _, ok := resolveAndRequireScope(w, r, d, "agent:read"); !ok {
			return
		}
		writeOK(w, requestID, http.StatusOK, map[string]string{"version": d.TermsVersion})
	}
}

// handleAgentTermsAccept backs agent.terms.accept (exempt from the terms
// gate by definition).
func handleAgentTermsAccept(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		key := agentcommerce.TermsAcceptanceKey{UID: ac.UID, Mode: agentAuthMode(ac), TokenOrClient: ac.AgentClientID, Version: d.TermsVersion}
		if key.TokenOrClient == "" {
			key.TokenOrClient = ac.TokenID
		}
		if err := d.Terms.RecordAcceptance(key); err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to record terms acceptance", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, map[string]string{"version": d.TermsVersion})
	}
}

// handleAgentAccountGet backs agent.account.get (staff only, spec.md §3.6).
func handleAgentAccountGet(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:read")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body struct {
			AgentClientID string `json:"agentClientId"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		account, found, err := d.AgentCommerce.GetAgentAccount(r.Context(), body.AgentClientID)
		if err != nil || !found {
			writeErr(w, requestID, apperrors.NotFound("agentAccount", body.AgentClientID))
			return
		}
		writeOK(w, requestID, http.StatusOK, account)
	}
}

type accountUpdateBody struct {
	AgentClientID      string `json:"agentClientId"`
	Status             string `json:"status"`
	IndependentEnabled *bool  `json:"independentEnabled"`
	PrepayRequired     *bool  `json:"prepayRequired"`
	DailySpendCapCents *int64 `json:"dailySpendCapCents"`
}

// handleAgentAccountUpdate backs agent.account.update (staff only,
// spec.md §3.6).
func handleAgentAccountUpdate(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r.Context())
		ac, ok := resolveAndRequireScope(w, r, d, "agent:write")
		if !ok {
			return
		}
		if !ac.IsStaff {
			writeErr(w, requestID, apperrors.Forbidden("staff only"))
			return
		}
		var body accountUpdateBody
		if err := decodeJSON(r, &body); err != nil {
			writeErr(w, requestID, apperrors.InvalidArgument("malformed request body"))
			return
		}
		updated, err := d.AgentCommerce.UpdateAgentAccount(r.Context(), body.AgentClientID, func(a *agentcommerce.AgentAccount) error {
			if body.Status != "" {
				a.Status = agentcommerce.AgentAccountStatus(body.Status)
			}
			if body.IndependentEnabled != nil {
				a.IndependentEnabled = *body.IndependentEnabled
			}
			if body.PrepayRequired != nil {
				a.PrepayRequired = *body.PrepayRequired
			}
			if body.DailySpendCapCents != nil {
				a.DailySpendCapCents = *body.DailySpendCapCents
			}
			return nil
		})
		if err != nil {
			writeErr(w, requestID, apperrors.Internal("failed to update agent account", err))
			return
		}
		writeOK(w, requestID, http.StatusOK, updated)
	}
}
