package agentcommerce

import (
	"testing"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLedgerDebit_DeniesOnHold(t *testing.T) {
	acct := &AgentAccount{Status: AgentAccountOnHold, PrepaidBalanceCents: 1000}
	_, svcErr := ApplyLedgerDebit(acct, "order-1", LedgerDebit{SubtotalCents: 100, Category: "glaze", Today: "2026-02-24"})
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeForbidden, svcErr.Code)
}

func TestApplyLedgerDebit_DeniesInsufficientBalance(t *testing.T) {
	acct := &AgentAccount{Status: AgentAccountActive, PrepaidBalanceCents: 50}
	_, svcErr := ApplyLedgerDebit(acct, "order-1", LedgerDebit{SubtotalCents: 100, Category: "glaze", Today: "2026-02-24"})
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeFailedPrecondition, svcErr.Code)
}

func TestApplyLedgerDebit_DeniesDailyCap(t *testing.T) {
	acct := &AgentAccount{Status: AgentAccountActive, PrepaidBalanceCents: 10000, DailySpendCapCents: 500, SpendDayKey: "2026-02-24", SpentTodayCents: 450}
	_, svcErr := ApplyLedgerDebit(acct, "order-1", LedgerDebit{SubtotalCents: 100, Category: "glaze", Today: "2026-02-24"})
	require.NotNil(t, svcErr)
	assert.Equal(t, apperrors.CodeConflict, svcErr.Code)
}

func TestApplyLedgerDebit_DeniesCategoryCap(t *testing.T) {
	acct := &AgentAccount{
		Status: AgentAccountActive, PrepaidBalanceCents: 10000, SpendDayKey: "2026-02-24",
		SpentByCategoryCents: map[string]int64{"glaze": 80, "cap:glaze": 100},
	}
	_, svcErr := ApplyLedgerDebit(acct, "order-1", LedgerDebit{SubtotalCents: 50, Category: "glaze", Today: "2026-02-24"})
	require.NotNil(t, svcErr)
}

func TestApplyLedgerDebit_SucceedsAndUpdatesBalances(t *testing.T) {
	acct := &AgentAccount{Status: AgentAccountActive, PrepaidBalanceCents: 1000, SpendDayKey: "2026-02-24"}
	entry, svcErr := ApplyLedgerDebit(acct, "order-1", LedgerDebit{SubtotalCents: 200, Category: "glaze", Today: "2026-02-24"})
	require.Nil(t, svcErr)
	assert.Equal(t, int64(800), acct.PrepaidBalanceCents)
	assert.Equal(t, int64(200), acct.SpentTodayCents)
	assert.Equal(t, int64(200), acct.SpentByCategoryCents["glaze"])
	assert.Equal(t, int64(800), entry.BalanceAfterCents)
}

func TestApplyLedgerDebit_ResetsOnNewDay(t *testing.T) {
	acct := &AgentAccount{Status: AgentAccountActive, PrepaidBalanceCents: 1000, SpendDayKey: "2026-02-23", SpentTodayCents: 900}
	_, svcErr := ApplyLedgerDebit(acct, "order-1", LedgerDebit{SubtotalCents: 200, Category: "glaze", Today: "2026-02-24"})
	require.Nil(t, svcErr)
	assert.Equal(t, "2026-02-24", acct.SpendDayKey)
	assert.Equal(t, int64(200), acct.SpentTodayCents)
}
