// Command sweep marks accounts inactive when they have not logged in for the
// configured threshold. It is meant to run on a schedule (cron or similar)
// and is safe to re-run: already-inactive accounts are skipped.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"eventara.org/internal/account"
	"eventara.org/internal/obs"
)

func main() {
	log.SetFlags(0)
	var (
		dsn       = flag.String("dsn", os.Getenv("EVENTARA_PG_DSN"), "PostgreSQL DSN")
		threshold = flag.Duration("threshold", 90*24*time.Hour, "Inactivity threshold")
		dryRun    = flag.Bool("dry-run", false, "Report without changing anything")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or EVENTARA_PG_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := account.NewPGStore(db)
	svc, err := account.NewService(store,
		// The sweep never issues tokens; the secret only satisfies service
		// construction.
		account.WithTokenSecret("sweep"),
		account.WithInactivityThreshold(*threshold),
		account.WithLogger(obs.Logger()),
	)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}

	if *dryRun {
		report, err := dryRunReport(ctx, svc)
		if err != nil {
			log.Fatalf("sweep dry run: %v", err)
		}
		log.Printf("sweep dry run: %d of %d active accounts would be deactivated",
			report.wouldDeactivate, report.scanned)
		return
	}

	report, err := svc.SweepInactive(ctx)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Printf("sweep: scanned=%d deactivated=%d failures=%d",
		report.Scanned, report.Deactivated, len(report.Failures))
	for id, ferr := range report.Failures {
		log.Printf("sweep failure account=%s: %v", id, ferr)
	}
	if len(report.Failures) > 0 {
		os.Exit(1)
	}
}

type dryReport struct {
	scanned         int
	wouldDeactivate int
}

func dryRunReport(ctx context.Context, svc *account.Service) (dryReport, error) {
	accounts, err := svc.Store().Accounts(ctx).ListActive(ctx)
	if err != nil {
		return dryReport{}, err
	}
	cutoff := svc.Now().Add(-svc.InactivityThreshold())
	rep := dryReport{scanned: len(accounts)}
	for _, a := range accounts {
		if a.LastSeen().Before(cutoff) {
			rep.wouldDeactivate++
		}
	}
	return rep, nil
}
