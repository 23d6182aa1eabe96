// Package agentcommerce implements the Agent Commerce Pipeline (spec.md
// §3.5, §3.6, §4.2): quote -> reserve -> pay -> order, risk-tiered
// delegated-agent spend checks, and the independent-agent ledger.
package agentcommerce

import "time"

// QuoteStatus is the quote lifecycle state (spec.md §3.5).
type QuoteStatus string

const (
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusReserved QuoteStatus = "reserved"
	QuoteStatusExpired  QuoteStatus = "expired"
	QuoteStatusConsumed QuoteStatus = "consumed"
)

// QuoteHoldDuration is the 15-minute hold spec.md §3.5 specifies.
const QuoteHoldDuration = 15 * time.Minute

// AuthMode mirrors actor.Mode at the pipeline boundary.
type AuthMode string

const (
	AuthModeSession        AuthMode = "session"
	AuthModeDelegatedAgent AuthMode = "delegated_agent"
	AuthModePersonalAccess AuthMode = "personal_access"
)

// RiskLevel is the delegated-agent trust tier (spec.md §4.2).
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Quote is the priced offer a caller may reserve (spec.md §3.5).
type Quote struct {
	QuoteID               string
	ServiceID             string
	UID                   string
	AuthMode              AuthMode
	AgentClientID         string
	Quantity              int
	UnitPriceCents         int64
	SubtotalCents          int64
	Currency              string
	RiskLevel             RiskLevel
	RequiresManualReview  bool
	Status                QuoteStatus
	ExpiresAt             time.Time
	CreatedAt             time.Time
}

// Reservable reports whether q may still be reserved (spec.md §4.2:
// "Quote is reservable only while status in {quoted, reserved} and
// expires_at > now").
func (q Quote) Reservable(now time.Time) bool {
	if q.Status != QuoteStatusQuoted && q.Status != QuoteStatusReserved {
		return false
	}
	return q.ExpiresAt.After(now)
}

// AgentReservationStatus is the agent-reservation lifecycle state
// (spec.md §3.5).
type AgentReservationStatus string

const (
	AgentReservationReserved         AgentReservationStatus = "reserved"
	AgentReservationPendingReview    AgentReservationStatus = "pending_review"
	AgentReservationPaid             AgentReservationStatus = "paid"
	AgentReservationPaymentRequired  AgentReservationStatus = "payment_required"
	AgentReservationCancelled        AgentReservationStatus = "cancelled"
	AgentReservationExpired          AgentReservationStatus = "expired"
)

// AgentReservation is the hold created by reserving a quote (spec.md
// §3.5).
type AgentReservation struct {
	ReservationID        string
	QuoteID              string
	Status               AgentReservationStatus
	HoldExpiresAt        time.Time
	RequiresManualReview bool
}

// PaymentProvider is how an order will be (or was) settled.
type PaymentProvider string

const (
	PaymentProviderStripe         PaymentProvider = "stripe"
	PaymentProviderInternalPrepay PaymentProvider = "internal_prepay"
)

// OrderStatus is the order lifecycle state (spec.md §3.5).
type OrderStatus string

const (
	OrderStatusPaymentRequired OrderStatus = "payment_required"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusRefunded        OrderStatus = "refunded"
)

// Order is the billable record created alongside an agent reservation's
// payment transition (spec.md §3.5).
type Order struct {
	OrderID                string
	UID                    string
	ReservationID          string
	AmountCents            int64
	Currency               string
	Status                 OrderStatus
	PaymentStatus          string
	FulfillmentStatus      string
	PaymentProvider        PaymentProvider
	PriceID                string
	StripeCheckoutSessionID string
	StripePaymentIntentID  string
	CreatedAt              time.Time
}

// AgentAccountStatus is the independent-agent ledger's account state
// (spec.md §3.6).
type AgentAccountStatus string

const (
	AgentAccountActive  AgentAccountStatus = "active"
	AgentAccountOnHold  AgentAccountStatus = "on_hold"
)

// AgentAccount is the per-client independent-agent ledger (spec.md §3.6).
type AgentAccount struct {
	AgentClientID         string
	Status                AgentAccountStatus
	IndependentEnabled    bool
	PrepayRequired        bool
	PrepaidBalanceCents   int64
	DailySpendCapCents    int64
	SpendDayKey           string
	SpentTodayCents       int64
	SpentByCategoryCents  map[string]int64
	CooldownUntil         *time.Time
	RecentDenialCount24h  int
}

// ResetIfNewDay resets the daily counters when spend_day_key no longer
// matches today (spec.md §3.6 invariant).
func (a *AgentAccount) ResetIfNewDay(today string) {
	if a.SpendDayKey == today {
		return
	}
	a.SpendDayKey = today
	a.SpentTodayCents = 0
	for k := range a.SpentByCategoryCents {
		if len(k) < 4 || k[:4] != "cap:" {
			a.SpentByCategoryCents[k] = 0
		}
	}
}

// CommissionStatus is the commission-request lifecycle (spec.md §4.2).
type CommissionStatus string

const (
	CommissionTriaged  CommissionStatus = "triaged"
	CommissionAccepted CommissionStatus = "accepted"
	CommissionRejected CommissionStatus = "rejected"
)

// CommissionRequest is a free-text print/fabrication request subject to
// content screening (spec.md §4.2).
type CommissionRequest struct {
	RequestID     string
	UID           string
	Description   string
	Status        CommissionStatus
	PolicyVersion string
	ReasonCode    string
}

// X1CFileType and X1CMaterialProfile enumerate the print-request
// constraints (spec.md §4.2).
type X1CFileType string

const (
	X1CFile3MF  X1CFileType = "3mf"
	X1CFileSTL  X1CFileType = "stl"
	X1CFileSTEP X1CFileType = "step"
)

type X1CMaterialProfile string

const (
	X1CMaterialPLA  X1CMaterialProfile = "pla"
	X1CMaterialPETG X1CMaterialProfile = "petg"
	X1CMaterialABS  X1CMaterialProfile = "abs"
	X1CMaterialASA  X1CMaterialProfile = "asa"
	X1CMaterialPACF X1CMaterialProfile = "pa_cf"
	X1CMaterialTPU  X1CMaterialProfile = "tpu"
)

// X1CPrintRequest is a 3D-print job request (spec.md §4.2).
type X1CPrintRequest struct {
	RequestID       string
	UID             string
	FileType        X1CFileType
	MaterialProfile X1CMaterialProfile
	DimensionsMM    [3]float64
	Quantity        int
	Description     string
}
