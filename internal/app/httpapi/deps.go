package httpapi

import (
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/actor"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/agentcommerce"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/guard"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/idempotency"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/libraryloan"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/reservation"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/station"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/logger"
)

// Deps bundles every collaborator the route handlers close over. One Deps
// is built once at process start (cmd/server/main.go) and is immutable for
// the life of the process.
type Deps struct {
	Log       *logger.Logger
	Actors    *actor.Resolver
	Guard     *guard.Guard
	Ledger    *idempotency.Ledger
	Stations  *station.Registry

	Reservations      reservation.Store
	StorageAudit      reservation.StorageAuditWriter
	FairnessAudit     reservation.FairnessAuditWriter
	ContinuityAudit   reservation.AuditSource

	AgentCommerce agentcommerce.Store
	Terms         agentcommerce.TermsAcceptanceStore
	TermsVersion  string

	Library libraryloan.Store

	LibraryRolloutPhase string
}

// libraryPhaseRank orders rollout phases so a route's MinPhase can be
// compared against the configured phase (spec.md §4.5).
var libraryPhaseRank = map[string]int{
	"phase_1_read_only":     1,
	"phase_2_member_writes": 2,
	"phase_3_admin_full":    3,
}

func libraryPhaseAllows(configured, required string) bool {
	if required == "" {
		return true
	}
	return libraryPhaseRank[configured] >= libraryPhaseRank[required]
}
