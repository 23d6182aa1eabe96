package agentcommerce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRevenueRange_RejectsOver92Days(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(100 * 24 * time.Hour)
	svcErr := ValidateRevenueRange(start, end)
	require.NotNil(t, svcErr)
}

func TestValidateRevenueRange_AllowsWithinCap(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)
	svcErr := ValidateRevenueRange(start, end)
	assert.Nil(t, svcErr)
}

func TestRevenueSummary_AggregatesByDayAndProvider(t *testing.T) {
	rows := []OrderLedgerRow{
		{Day: "2026-02-24", PaymentProvider: PaymentProviderStripe, Currency: "usd", AmountCents: 1000, Status: OrderStatusPaid},
		{Day: "2026-02-24", PaymentProvider: PaymentProviderStripe, Currency: "usd", AmountCents: 500, Status: OrderStatusPaid},
		{Day: "2026-02-24", PaymentProvider: PaymentProviderStripe, Currency: "usd", AmountCents: 200, Status: OrderStatusRefunded},
		{Day: "2026-02-23", PaymentProvider: PaymentProviderInternalPrepay, Currency: "usd", AmountCents: 300, Status: OrderStatusPaid},
	}

	out := RevenueSummary(rows)

	require.Len(t, out, 2)
	assert.Equal(t, "2026-02-23", out[0].Day)
	assert.Equal(t, int64(300), out[0].GrossCents)

	assert.Equal(t, "2026-02-24", out[1].Day)
	assert.Equal(t, int64(1500), out[1].GrossCents)
	assert.Equal(t, int64(200), out[1].RefundedCents)
	assert.Equal(t, 3, out[1].OrderCount)
}
