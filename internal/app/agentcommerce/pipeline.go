package agentcommerce

import (
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/idgen"
)

// NewQuote prices a request and opens its 15-minute hold (spec.md §3.5).
func NewQuote(quoteID, serviceID, uid string, mode AuthMode, agentClientID string, quantity int, unitPriceCents int64, currency string, risk RiskLevel, now time.Time) Quote {
	return Quote{
		QuoteID: quoteID, ServiceID: serviceID, UID: uid, AuthMode: mode, AgentClientID: agentClientID,
		Quantity: quantity, UnitPriceCents: unitPriceCents, SubtotalCents: unitPriceCents * int64(quantity),
		Currency: currency, RiskLevel: risk, Status: QuoteStatusQuoted,
		ExpiresAt: now.Add(QuoteHoldDuration), CreatedAt: now,
	}
}

// AgentReservationID derives the deterministic id spec.md §3.5 specifies:
// hash("agent-reservation", quote.uid, quote_id).
func AgentReservationID(uid, quoteID string) string {
	return idgen.Hash("agent-reservation", uid, quoteID)
}

// Reserve transitions a reservable quote into an agent reservation. When
// an existing reservation for the same quote is passed in (existing !=
// nil), it is returned unchanged with idempotentReplay=true rather than
// creating a second one (spec.md §4.2: "duplicate reserve calls return
// the existing reservation").
func Reserve(quote Quote, existing *AgentReservation, now time.Time) (AgentReservation, bool, *apperrors.ServiceError) {
	if existing != nil {
		return *existing, true, nil
	}

	if !quote.Reservable(now) {
		return AgentReservation{}, false, apperrors.Gone("quote has expired").WithReason(apperrors.ReasonQuoteExpired)
	}

	return AgentReservation{
		ReservationID:        AgentReservationID(quote.UID, quote.QuoteID),
		QuoteID:              quote.QuoteID,
		Status:               AgentReservationReserved,
		HoldExpiresAt:        quote.ExpiresAt,
		RequiresManualReview: quote.RequiresManualReview,
	}, false, nil
}

// OrderID derives the deterministic id spec.md §3.5 specifies:
// hash("agent-order", uid, reservation_id | idempotency_key).
func OrderID(uid, reservationIDOrIdempotencyKey string) string {
	return idgen.Hash("agent-order", uid, reservationIDOrIdempotencyKey)
}

// PayInput is the §4.2 pay-transition request.
type PayInput struct {
	UID             string
	ReservationID   string
	IdempotencyKey  string
	AmountCents     int64
	Currency        string
	Provider        PaymentProvider
	PriceID         string
	PrepaidSettled  bool
	Now             time.Time
}

// Pay writes the order and advances the agent reservation's status inside
// the same logical transaction (spec.md §4.2): prepaid settlement goes
// straight to paid, everything else starts payment_required.
func Pay(reservation *AgentReservation, in PayInput) Order {
	idemKey := in.IdempotencyKey
	if idemKey == "" {
		idemKey = in.ReservationID
	}

	status := OrderStatusPaymentRequired
	reservationStatus := AgentReservationPaymentRequired
	if in.PrepaidSettled {
		status = OrderStatusPaid
		reservationStatus = AgentReservationPaid
	}

	reservation.Status = reservationStatus

	return Order{
		OrderID:           OrderID(in.UID, idemKey),
		UID:               in.UID,
		ReservationID:     in.ReservationID,
		AmountCents:       in.AmountCents,
		Currency:          in.Currency,
		Status:            status,
		FulfillmentStatus: "queued",
		PaymentProvider:   in.Provider,
		PriceID:           in.PriceID,
		CreatedAt:         in.Now,
	}
}
