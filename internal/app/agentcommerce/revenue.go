package agentcommerce

import (
	"sort"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// maxRevenueRangeDays caps the caller-supplied date range for
// revenue.summary (SPEC_FULL.md §8: "capped at 92 days").
const maxRevenueRangeDays = 92

// RevenueRow is one {day, payment_provider} aggregate (SPEC_FULL.md §8).
type RevenueRow struct {
	Day             string
	PaymentProvider PaymentProvider
	Currency        string
	GrossCents      int64
	RefundedCents   int64
	OrderCount      int
}

// OrderLedgerRow is the minimal shape RevenueSummary reduces over; callers
// supply the rows already scoped to the requested range.
type OrderLedgerRow struct {
	Day             string
	PaymentProvider PaymentProvider
	Currency        string
	AmountCents     int64
	Status          OrderStatus
}

// ValidateRevenueRange enforces the 92-day cap.
func ValidateRevenueRange(start, end time.Time) *apperrors.ServiceError {
	if end.Before(start) {
		return apperrors.InvalidArgument("end must be on or after start")
	}
	if end.Sub(start) > maxRevenueRangeDays*24*time.Hour {
		return apperrors.InvalidArgument("date range exceeds the 92-day limit")
	}
	return nil
}

// RevenueSummary aggregates orders by (day, payment_provider), producing
// gross/refunded totals and order counts (SPEC_FULL.md §8). Rows are
// returned sorted by day then provider for stable pagination.
func RevenueSummary(rows []OrderLedgerRow) []RevenueRow {
	type key struct {
		day      string
		provider PaymentProvider
	}
	agg := map[key]*RevenueRow{}

	for _, row := range rows {
		k := key{day: row.Day, provider: row.PaymentProvider}
		entry, ok := agg[k]
		if !ok {
			entry = &RevenueRow{Day: row.Day, PaymentProvider: row.PaymentProvider, Currency: row.Currency}
			agg[k] = entry
		}
		switch row.Status {
		case OrderStatusPaid:
			entry.GrossCents += row.AmountCents
			entry.OrderCount++
		case OrderStatusRefunded:
			entry.RefundedCents += row.AmountCents
			entry.OrderCount++
		}
	}

	out := make([]RevenueRow, 0, len(agg))
	for _, v := range agg {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].PaymentProvider < out[j].PaymentProvider
	})
	return out
}
