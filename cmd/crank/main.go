// Package main runs the maintenance crank standalone: settle due rounds,
// advance vesting payouts, pay pending referral fees. Deploy it separately
// when the API server runs with --no-crank, or invoke with --once from a
// scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tykhepot-engine/internal/audit"
	"tykhepot-engine/internal/crank"
	"tykhepot-engine/internal/lottery"
	"tykhepot-engine/internal/observability"
	"tykhepot-engine/internal/referral"
	chstore "tykhepot-engine/internal/storage/clickhouse"
	"tykhepot-engine/internal/storage/migrations"
	pgstore "tykhepot-engine/internal/storage/postgres"
	"tykhepot-engine/internal/vault"
	"tykhepot-engine/internal/vesting"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	interval := flag.Duration("interval", 15*time.Second, "Sweep interval")
	once := flag.Bool("once", false, "Run a single sweep and exit")

	platformAcct := flag.String("platform-account", os.Getenv("PLATFORM_ACCOUNT"), "Platform fee account address")
	escrowAcct := flag.String("escrow-account", os.Getenv("ESCROW_ACCOUNT"), "Prize escrow account address")
	referralAcct := flag.String("referral-account", os.Getenv("REFERRAL_ACCOUNT"), "Referral vault account address")
	reserveAcct := flag.String("reserve-account", os.Getenv("RESERVE_ACCOUNT"), "Reserve vault account address")
	promoAcct := flag.String("promo-account", os.Getenv("PROMO_ACCOUNT"), "Promo vault account address")

	flag.Parse()

	logger := log.New(os.Stdout, "[crank] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	for name, v := range map[string]string{
		"--platform-account": *platformAcct,
		"--escrow-account":   *escrowAcct,
		"--referral-account": *referralAcct,
		"--reserve-account":  *reserveAcct,
		"--promo-account":    *promoAcct,
	} {
		if v == "" {
			logger.Fatalf("%s is required", name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}

	stores := lottery.Stores{
		Pools:        pgstore.NewPoolStore(pool),
		Deposits:     pgstore.NewDepositStore(pool),
		FreeDeposits: pgstore.NewFreeDepositStore(pool),
		Grants:       pgstore.NewGrantStore(pool),
		Draws:        pgstore.NewDrawResultStore(pool),
	}
	ledger := pgstore.NewLedger(pool)
	accounts := vault.Accounts{
		PlatformFee: *platformAcct,
		PrizeEscrow: *escrowAcct,
		Referral:    *referralAcct,
		Reserve:     *reserveAcct,
		Promo:       *promoAcct,
	}

	sinks := []audit.Sink{
		&audit.LogSink{Logger: log.New(os.Stdout, "", log.LstdFlags)},
		observability.EventSink{},
	}
	var recorder *audit.Recorder
	if *clickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Clickhouse migrations: %v", err)
		}
		defer chConn.Close()
		recorder = audit.NewRecorder(chstore.NewAuditEventStore(chConn), log.New(os.Stdout, "[recorder] ", log.LstdFlags))
		sinks = append(sinks, recorder)
	}
	sink := audit.NewFanout(sinks...)

	engine := lottery.NewEngine(stores, ledger, accounts, sink, log.New(os.Stdout, "[engine] ", log.LstdFlags))
	claimer := vesting.NewClaimer(stores.Draws, ledger, accounts.PrizeEscrow, sink, log.New(os.Stdout, "[vesting] ", log.LstdFlags))
	payer := referral.NewPayer(stores.Deposits, stores.Draws, ledger, accounts.Referral, sink, log.New(os.Stdout, "[referral] ", log.LstdFlags))
	c := crank.New(engine, claimer, payer, stores, *interval, logger)

	recorderDone := make(chan struct{})
	if recorder != nil {
		go func() {
			defer close(recorderDone)
			recorder.Run(ctx)
		}()
	} else {
		close(recorderDone)
	}

	if *once {
		c.Sweep(ctx)
		cancel()
		<-recorderDone
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down", sig)
		cancel()
	}()

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "crank: %v\n", err)
		os.Exit(1)
	}
	<-recorderDone
}
