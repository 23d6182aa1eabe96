// Command server runs the MonsoonFire control-plane HTTP process: the
// Router & Response Shaper fronting the Reservation Engine, the Agent
// Commerce Pipeline, and the Library Loan Lifecycle (teacher:
// cmd/appserver/main.go's flag/env wiring, signal-driven shutdown).
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/actor"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/guard"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/httpapi"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/idempotency"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/postgres"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/station"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/config"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/platform/database"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/platform/migrations"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	dsnFlag := flag.String("dsn", "", "PostgreSQL DSN (overrides DATABASE_URL)")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides LISTEN_ADDR)")
	runMigrations := flag.Bool("migrate", true, "run embedded database migrations on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	dsn := strings.TrimSpace(*dsnFlag)
	if dsn == "" {
		dsn = cfg.DatabaseDSN
	}

	rootCtx := context.Background()
	db, err := database.Open(rootCtx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()
	configurePool(db, cfg)

	if *runMigrations {
		if err := migrations.Apply(rootCtx, db); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	deps, err := buildDeps(db, cfg, log)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}

	addr := strings.TrimSpace(*addrFlag)
	if addr == "" {
		addr = cfg.ListenAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Infof("monsoonfire control plane listening on %s", addr)
		serveErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	case <-sigCh:
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func configurePool(db *sql.DB, cfg *config.Config) {
	if cfg.DBMaxConnections > 0 {
		db.SetMaxOpenConns(cfg.DBMaxConnections)
		db.SetMaxIdleConns(cfg.DBMaxConnections)
	}
	if cfg.DBIdleTimeout > 0 {
		db.SetConnMaxIdleTime(cfg.DBIdleTimeout)
	}
}

// buildDeps wires every collaborator the httpapi route table closes over.
func buildDeps(db *sql.DB, cfg *config.Config, log *logger.Logger) (*httpapi.Deps, error) {
	patLookup := actor.LoadEnvPATLookup()
	actors := actor.NewResolver([]byte(cfg.SessionSigningSecret), patLookup)

	cooldownHook := func(agentClientID string, until time.Time) {
		log.Warnf("agent %s entered cooldown until %s", agentClientID, until.Format(time.RFC3339))
	}
	guardInstance := guard.New(cfg.AutoCooldownOnRateLimit, time.Duration(cfg.AutoCooldownMinutes)*time.Minute, cooldownHook)

	stations := station.NewRegistry(loadStationSource(), cfg.StationRegistryTTL)

	ledger := idempotency.New(postgres.NewIdempotencyStore(db))

	reservations := postgres.NewReservationStore(db)
	auditStore := postgres.NewAuditStore(db)

	agentStore := postgres.NewAgentCommerceStore(db)
	termsStore := postgres.NewTermsStore(db, 30*time.Second)

	library := postgres.NewLibraryLoanStore(db)

	return &httpapi.Deps{
		Log:      log,
		Actors:   actors,
		Guard:    guardInstance,
		Ledger:   ledger,
		Stations: stations,

		Reservations:    reservations,
		StorageAudit:    auditStore,
		FairnessAudit:   auditStore,
		ContinuityAudit: auditStore,

		AgentCommerce: agentStore,
		Terms:         termsStore,
		TermsVersion:  cfg.TermsVersion,

		Library: library,

		LibraryRolloutPhase: cfg.LibraryRolloutPhase,
	}, nil
}

// loadStationSource parses the kiln station table from STATION_CONFIG, a
// JSON array of {"id": "...", "capacityHalfShelves": N} (spec.md §3.2:
// "a small, admin-managed table... deployed as configuration").
func loadStationSource() station.Source {
	raw := strings.TrimSpace(os.Getenv("STATION_CONFIG"))
	if raw == "" {
		return station.StaticSource{}
	}
	var entries []struct {
		ID                  string `json:"id"`
		CapacityHalfShelves int    `json:"capacityHalfShelves"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return station.StaticSource{}
	}
	stations := make([]station.Station, 0, len(entries))
	for _, e := range entries {
		stations = append(stations, station.Station{ID: e.ID, CapacityHalfShelves: e.CapacityHalfShelves})
	}
	return station.StaticSource{Stations: stations}
}
