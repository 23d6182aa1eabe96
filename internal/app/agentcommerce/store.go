package agentcommerce

import "context"

// Store is the persistence seam for quotes, agent reservations, orders,
// and agent accounts (spec.md §6.4: agentQuotes, agentReservations,
// agentOrders, agentAccounts).
type Store interface {
	GetQuote(ctx context.Context, quoteID string) (Quote, bool, error)
	PutQuote(ctx context.Context, q Quote) error

	GetAgentReservation(ctx context.Context, reservationID string) (AgentReservation, bool, error)
	PutAgentReservation(ctx context.Context, r AgentReservation) error

	PutOrder(ctx context.Context, o Order) error
	GetOrder(ctx context.Context, orderID string) (Order, bool, error)
	ListOrdersByUID(ctx context.Context, uid string, limit int) ([]Order, error)
	ListOrdersInRange(ctx context.Context, startDay, endDay string) ([]OrderLedgerRow, error)

	GetAgentAccount(ctx context.Context, agentClientID string) (AgentAccount, bool, error)
	UpdateAgentAccount(ctx context.Context, agentClientID string, fn func(a *AgentAccount) error) (AgentAccount, error)
}
