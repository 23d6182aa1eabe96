package agentcommerce

import (
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
)

// LedgerDebit is the request to debit an independent-agent account for
// one order (spec.md §4.2): "debit prepaid_balance_cents -= subtotal,
// credit spent_today_cents, bump spent_by_category_cents[category]; deny
// when on hold, insufficient prepay, daily cap, or category cap would be
// breached."
type LedgerDebit struct {
	SubtotalCents int64
	Category      string
	Today         string
}

// LedgerEntry is the sub-record posted alongside the order (spec.md §4.2:
// "also post a ledger/{order_id} sub-record").
type LedgerEntry struct {
	OrderID             string
	SubtotalCents       int64
	Category            string
	BalanceAfterCents   int64
	SpentTodayAfterCents int64
}

// ApplyLedgerDebit mutates account in place and returns the sub-record to
// persist, or a ServiceError when the debit must be denied.
func ApplyLedgerDebit(account *AgentAccount, orderID string, debit LedgerDebit) (LedgerEntry, *apperrors.ServiceError) {
	if account.Status == AgentAccountOnHold {
		return LedgerEntry{}, apperrors.Forbidden("agent account is on hold")
	}

	account.ResetIfNewDay(debit.Today)

	if account.PrepaidBalanceCents < debit.SubtotalCents {
		return LedgerEntry{}, apperrors.FailedPrecondition("insufficient prepaid balance", "")
	}

	if account.DailySpendCapCents > 0 && account.SpentTodayCents+debit.SubtotalCents > account.DailySpendCapCents {
		return LedgerEntry{}, apperrors.Conflict("daily spend cap would be exceeded", "")
	}

	if account.SpentByCategoryCents == nil {
		account.SpentByCategoryCents = map[string]int64{}
	}
	if capCents, ok := account.SpentByCategoryCents["cap:"+debit.Category]; ok && capCents > 0 {
		current := account.SpentByCategoryCents[debit.Category]
		if current+debit.SubtotalCents > capCents {
			return LedgerEntry{}, apperrors.Conflict("category spend cap would be exceeded", "")
		}
	}

	account.PrepaidBalanceCents -= debit.SubtotalCents
	account.SpentTodayCents += debit.SubtotalCents
	account.SpentByCategoryCents[debit.Category] += debit.SubtotalCents

	return LedgerEntry{
		OrderID:              orderID,
		SubtotalCents:        debit.SubtotalCents,
		Category:             debit.Category,
		BalanceAfterCents:    account.PrepaidBalanceCents,
		SpentTodayAfterCents: account.SpentTodayCents,
	}, nil
}
