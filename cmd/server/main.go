// Package main provides the unified lottery service:
// - HTTP API for deposits, free bets, vesting and referral claims
// - Crank (scheduled): draws or refunds due rounds, advances vesting, pays referrals
// - Audit fan-out: ClickHouse event log, websocket feed, Prometheus metrics
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mr-tron/base58"

	"tykhepot-engine/internal/audit"
	"tykhepot-engine/internal/crank"
	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/lottery"
	"tykhepot-engine/internal/observability"
	"tykhepot-engine/internal/referral"
	"tykhepot-engine/internal/storage"
	chstore "tykhepot-engine/internal/storage/clickhouse"
	"tykhepot-engine/internal/storage/memory"
	"tykhepot-engine/internal/storage/migrations"
	pgstore "tykhepot-engine/internal/storage/postgres"
	"tykhepot-engine/internal/vault"
	"tykhepot-engine/internal/vesting"
)

// Server wires the engine, the crank, and the audit fan-out behind one HTTP
// listener.
type Server struct {
	engine  *lottery.Engine
	claimer *vesting.Claimer
	payer   *referral.Payer
	crank   *crank.Crank
	hub     *audit.Hub
	stores  lottery.Stores
	ledger  vault.Ledger
	events  *chstore.AuditEventStore // nil in memory mode
	logger  *log.Logger

	useMemory bool

	mu      sync.Mutex
	started time.Time
}

func main() {
	loadEnvFile()

	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and ledger instead of PostgreSQL/ClickHouse")
	crankInterval := flag.Duration("crank-interval", 15*time.Second, "Round settlement sweep interval")
	noCrank := flag.Bool("no-crank", false, "Disable the built-in crank (run cmd/crank separately)")

	vaultMin30 := flag.String("vault-min30", os.Getenv("VAULT_MIN30"), "MIN30 pool vault address")
	vaultHourly := flag.String("vault-hourly", os.Getenv("VAULT_HOURLY"), "HOURLY pool vault address")
	vaultDaily := flag.String("vault-daily", os.Getenv("VAULT_DAILY"), "DAILY pool vault address")
	platformAcct := flag.String("platform-account", os.Getenv("PLATFORM_ACCOUNT"), "Platform fee account address")
	escrowAcct := flag.String("escrow-account", os.Getenv("ESCROW_ACCOUNT"), "Prize escrow account address")
	referralAcct := flag.String("referral-account", os.Getenv("REFERRAL_ACCOUNT"), "Referral vault account address")
	reserveAcct := flag.String("reserve-account", os.Getenv("RESERVE_ACCOUNT"), "Reserve vault account address")
	promoAcct := flag.String("promo-account", os.Getenv("PROMO_ACCOUNT"), "Promo vault account address")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, ledger, eventStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	accounts, err := resolveAccounts(*useMemory, *platformAcct, *escrowAcct, *referralAcct, *reserveAcct, *promoAcct)
	if err != nil {
		logger.Fatalf("Vault accounts: %v", err)
	}

	// Audit fan-out: log line, websocket feed, Prometheus; plus the durable
	// ClickHouse recorder when one is configured.
	hub := audit.NewHub(log.New(os.Stdout, "[feed] ", log.LstdFlags))
	defer hub.Close()
	sinks := []audit.Sink{
		&audit.LogSink{Logger: log.New(os.Stdout, "", log.LstdFlags)},
		hub,
		observability.EventSink{},
	}
	var recorder *audit.Recorder
	if eventStore != nil {
		recorder = audit.NewRecorder(eventStore, log.New(os.Stdout, "[recorder] ", log.LstdFlags))
		sinks = append(sinks, recorder)
	}
	sink := audit.NewFanout(sinks...)

	engine := lottery.NewEngine(stores, ledger, accounts, sink, log.New(os.Stdout, "[engine] ", log.LstdFlags))
	claimer := vesting.NewClaimer(stores.Draws, ledger, accounts.PrizeEscrow, sink, log.New(os.Stdout, "[vesting] ", log.LstdFlags))
	payer := referral.NewPayer(stores.Deposits, stores.Draws, ledger, accounts.Referral, sink, log.New(os.Stdout, "[referral] ", log.LstdFlags))

	vaults := map[domain.PoolType]string{
		domain.PoolMin30:  *vaultMin30,
		domain.PoolHourly: *vaultHourly,
		domain.PoolDaily:  *vaultDaily,
	}
	if err := ensurePools(ctx, engine, stores.Pools, vaults, *useMemory); err != nil {
		logger.Fatalf("Pool setup: %v", err)
	}

	server := &Server{
		engine:    engine,
		claimer:   claimer,
		payer:     payer,
		crank:     crank.New(engine, claimer, payer, stores, *crankInterval, log.New(os.Stdout, "", log.LstdFlags)),
		hub:       hub,
		stores:    stores,
		ledger:    ledger,
		events:    eventStore,
		logger:    logger,
		useMemory: *useMemory,
		started:   time.Now(),
	}

	var wg sync.WaitGroup
	if recorder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Run(ctx)
		}()
	}
	if !*noCrank {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.crank.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Printf("Crank error: %v", err)
			}
		}()
	}

	// Feed gauges track the websocket hub and the recorder's drop counter.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var dropped uint64
				if recorder != nil {
					dropped = recorder.Dropped()
				}
				observability.UpdateFeed(hub.SubscriberCount(), dropped)
			}
		}
	}()

	httpSrv := &http.Server{Addr: *listenAddr, Handler: server.routes()}
	go func() {
		logger.Printf("Listening on %s", *listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	cancel()

	go func() {
		sig := <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
	wg.Wait()
	logger.Println("Shutdown complete")
}

// createStores builds the store set, the token ledger, and (when ClickHouse
// is configured) the audit event store. Migrations run on startup.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (lottery.Stores, vault.Ledger, *chstore.AuditEventStore, func(), error) {
	if useMemory {
		stores := lottery.Stores{
			Pools:        memory.NewPoolStore(),
			Deposits:     memory.NewDepositStore(),
			FreeDeposits: memory.NewFreeDepositStore(),
			Grants:       memory.NewGrantStore(),
			Draws:        memory.NewDrawResultStore(),
		}
		return stores, vault.NewMemoryLedger(), nil, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return lottery.Stores{}, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return lottery.Stores{}, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return lottery.Stores{}, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := lottery.Stores{
		Pools:        pgstore.NewPoolStore(pool),
		Deposits:     pgstore.NewDepositStore(pool),
		FreeDeposits: pgstore.NewFreeDepositStore(pool),
		Grants:       pgstore.NewGrantStore(pool),
		Draws:        pgstore.NewDrawResultStore(pool),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, pgstore.NewLedger(pool), chstore.NewAuditEventStore(chConn), cleanup, nil
}

// resolveAccounts fills the protocol vault addresses. In memory mode any
// unset account gets an ephemeral generated address; in persistent mode all
// five must be configured.
func resolveAccounts(useMemory bool, platform, escrow, referralAcct, reserve, promo string) (vault.Accounts, error) {
	fill := func(name, v string) (string, error) {
		if v != "" {
			return v, nil
		}
		if !useMemory {
			return "", fmt.Errorf("%s account address is required", name)
		}
		return generateAddress()
	}

	var acct vault.Accounts
	var err error
	if acct.PlatformFee, err = fill("platform", platform); err != nil {
		return acct, err
	}
	if acct.PrizeEscrow, err = fill("escrow", escrow); err != nil {
		return acct, err
	}
	if acct.Referral, err = fill("referral", referralAcct); err != nil {
		return acct, err
	}
	if acct.Reserve, err = fill("reserve", reserve); err != nil {
		return acct, err
	}
	if acct.Promo, err = fill("promo", promo); err != nil {
		return acct, err
	}
	return acct, nil
}

// ensurePools initializes any pool that does not exist yet. Persistent mode
// requires a configured vault address for a missing pool; memory mode
// generates one.
func ensurePools(ctx context.Context, engine *lottery.Engine, pools storage.PoolStore, vaults map[domain.PoolType]string, useMemory bool) error {
	for _, pool := range domain.PoolTypes() {
		if _, err := pools.Get(ctx, pool); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("load pool %s: %w", pool, err)
		}

		vaultAddr := vaults[pool]
		if vaultAddr == "" {
			if !useMemory {
				return fmt.Errorf("pool %s is not initialized and no vault address was configured", pool)
			}
			addr, err := generateAddress()
			if err != nil {
				return err
			}
			vaultAddr = addr
		}
		if _, err := engine.InitPool(ctx, pool, vaultAddr); err != nil {
			return err
		}
	}
	return nil
}

// generateAddress makes an ephemeral on-curve base58 address. Memory mode
// only; persistent deployments configure real addresses.
func generateAddress() (string, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate address: %w", err)
	}
	return base58.Encode(pub), nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	mux.HandleFunc("POST /v1/deposit", s.handleDeposit)
	mux.HandleFunc("POST /v1/free-bet/eligibility", s.handleEligibility)
	mux.HandleFunc("POST /v1/free-bet/activate", s.handleActivate)
	mux.HandleFunc("POST /v1/vesting/claim", s.handleVestingClaim)
	mux.HandleFunc("POST /v1/referral/claim", s.handleReferralClaim)

	mux.HandleFunc("GET /v1/pools", s.handlePools)
	mux.HandleFunc("GET /v1/pools/{pool}", s.handlePool)
	mux.HandleFunc("GET /v1/draws/{pool}/{round}", s.handleDraw)
	mux.HandleFunc("GET /v1/events/{pool}", s.handleEvents)

	// Dev faucet: memory mode has no funded accounts, so expose a credit
	// endpoint for local runs.
	if s.useMemory {
		mux.HandleFunc("POST /v1/faucet", s.handleFaucet)
	}

	return mux
}

type depositRequest struct {
	Pool     uint8  `json:"pool"`
	User     string `json:"user"`
	Amount   uint64 `json:"amount"`
	Referrer string `json:"referrer,omitempty"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	pool, err := domain.PoolTypeFromUint8(req.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d, err := s.engine.Deposit(r.Context(), pool, req.User, req.Amount, req.Referrer)
	if err != nil {
		observability.RecordRejection("deposit", rejectionReason(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"pool":   pool.String(),
		"round":         d.RoundNumber,
		"user":          d.User,
		"amount":        d.Amount,
		"reserve_match": d.ReserveMatch,
	})
}

type userRequest struct {
	Pool uint8  `json:"pool"`
	User string `json:"user"`
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := s.engine.ClaimFreeEligibility(r.Context(), req.User); err != nil {
		observability.RecordRejection("eligibility", rejectionReason(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": req.User, "available": true})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	pool, err := domain.PoolTypeFromUint8(req.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.ActivateFreeBet(r.Context(), pool, req.User); err != nil {
		observability.RecordRejection("free_bet", rejectionReason(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"pool": pool.String(), "user": req.User, "amount": domain.FreeBetAmount})
}

type vestingClaimRequest struct {
	Pool  uint8  `json:"pool"`
	Round uint64 `json:"round"`
	Slot  *int   `json:"slot,omitempty"` // nil sweeps all slots
}

func (s *Server) handleVestingClaim(w http.ResponseWriter, r *http.Request) {
	var req vestingClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	pool, err := domain.PoolTypeFromUint8(req.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var paid uint64
	if req.Slot != nil {
		paid, err = s.claimer.Claim(r.Context(), pool, req.Round, *req.Slot)
	} else {
		paid, err = s.claimer.ClaimAll(r.Context(), pool, req.Round)
	}
	if err != nil {
		observability.RecordRejection("vesting_claim", rejectionReason(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pool": pool.String(), "round": req.Round, "paid": paid})
}

type referralClaimRequest struct {
	Pool  uint8  `json:"pool"`
	Round uint64 `json:"round"`
	User  string `json:"user"`
}

func (s *Server) handleReferralClaim(w http.ResponseWriter, r *http.Request) {
	var req referralClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	pool, err := domain.PoolTypeFromUint8(req.Pool)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	paid, err := s.payer.Claim(r.Context(), pool, req.Round, req.User)
	if err != nil {
		observability.RecordRejection("referral_claim", rejectionReason(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pool": pool.String(), "round": req.Round, "user": req.User, "paid": paid})
}

type poolResponse struct {
	Pool           string `json:"pool"`
	Round          uint64 `json:"round"`
	RoundStartTime int64  `json:"round_start_time"`
	RoundEndTime   int64  `json:"round_end_time"`
	TotalDeposited uint64 `json:"total_deposited"`
	FreeBetTotal   uint64 `json:"free_bet_total"`
	RegularCount   uint32 `json:"regular_count"`
	FreeCount      uint32 `json:"free_count"`
	Rollover       uint64 `json:"rollover"`
	VaultBalance   uint64 `json:"vault_balance"`
	DepositsOpen   bool   `json:"deposits_open"`
}

func (s *Server) poolResponse(ctx context.Context, p *domain.PoolState) poolResponse {
	balance, _ := s.ledger.Balance(ctx, p.Vault)
	return poolResponse{
		Pool:           p.PoolType.String(),
		Round:          p.RoundNumber,
		RoundStartTime: p.RoundStartTime,
		RoundEndTime:   p.RoundEndTime,
		TotalDeposited: p.TotalDeposited,
		FreeBetTotal:   p.FreeBetTotal,
		RegularCount:   p.RegularCount,
		FreeCount:      p.FreeCount,
		Rollover:       p.Rollover,
		VaultBalance:   balance,
		DepositsOpen:   p.DepositsOpen(time.Now().Unix()),
	}
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	out := make([]poolResponse, 0, 3)
	for _, pool := range domain.PoolTypes() {
		p, err := s.stores.Pools.Get(r.Context(), pool)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, s.poolResponse(r.Context(), p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	pool, err := parsePoolPath(r.PathValue("pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := s.stores.Pools.Get(r.Context(), pool)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.poolResponse(r.Context(), p))
}

type drawResponse struct {
	Pool          string    `json:"pool"`
	Round         uint64    `json:"round"`
	TopWinners    []string  `json:"top_winners"`
	TopAmounts    []uint64  `json:"top_amounts"`
	TopClaimed    []uint64  `json:"top_claimed"`
	DrawTimestamp int64     `json:"draw_timestamp"`
	Seed          string    `json:"seed"`
	VestedDays    uint64    `json:"vested_days"`
	Claimable     []uint64  `json:"claimable"`
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	pool, err := parsePoolPath(r.PathValue("pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	round, err := strconv.ParseUint(r.PathValue("round"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid round number: %w", err))
		return
	}

	res, err := s.stores.Draws.Get(r.Context(), pool, round)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	now := time.Now().Unix()
	claimable := make([]uint64, domain.TopWinnerCount)
	for slot := range claimable {
		if res.TopWinners[slot] == "" {
			continue
		}
		c, err := vesting.Claimable(res, slot, now)
		if err == nil {
			claimable[slot] = c
		}
	}
	writeJSON(w, http.StatusOK, drawResponse{
		Pool:          pool.String(),
		Round:         round,
		TopWinners:    res.TopWinners[:],
		TopAmounts:    res.TopAmounts[:],
		TopClaimed:    res.TopClaimed[:],
		DrawTimestamp: res.DrawTimestamp,
		Seed:          fmt.Sprintf("%x", res.Seed),
		VestedDays:    vesting.VestedDays(res.DrawTimestamp, now),
		Claimable:     claimable,
	})
}

// handleEvents serves the recent audit event log from ClickHouse. Memory
// mode has no durable log; subscribe to /ws instead.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no event log configured (memory mode); use /ws"))
		return
	}
	pool, err := parsePoolPath(r.PathValue("pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if v := r.URL.Query().Get("round"); v != "" {
		round, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid round number: %w", err))
			return
		}
		events, err := s.events.ListByRound(r.Context(), pool, round)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 1000 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be between 1 and 1000"))
			return
		}
	}

	events, err := s.events.ListRecent(r.Context(), pool, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type faucetRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Account == "" || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, errors.New("account and amount are required"))
		return
	}
	if err := s.ledger.Credit(r.Context(), req.Account, req.Amount); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	balance, _ := s.ledger.Balance(r.Context(), req.Account)
	writeJSON(w, http.StatusOK, map[string]any{"account": req.Account, "balance": balance})
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status          string         `json:"status"`
	Uptime          string         `json:"uptime"`
	Storage         string         `json:"storage"`
	FeedSubscribers int            `json:"feed_subscribers"`
	Pools           []poolResponse `json:"pools"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	uptime := time.Since(s.started).String()
	s.mu.Unlock()

	storageKind := "postgres+clickhouse"
	if s.useMemory {
		storageKind = "memory"
	}

	pools := make([]poolResponse, 0, 3)
	for _, pool := range domain.PoolTypes() {
		p, err := s.stores.Pools.Get(r.Context(), pool)
		if err != nil {
			continue
		}
		pools = append(pools, s.poolResponse(r.Context(), p))
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:          "running",
		Uptime:          uptime,
		Storage:         storageKind,
		FeedSubscribers: s.hub.SubscriberCount(),
		Pools:           pools,
	})
}

func parsePoolPath(v string) (domain.PoolType, error) {
	switch strings.ToUpper(v) {
	case "MIN30", "0":
		return domain.PoolMin30, nil
	case "HOURLY", "1":
		return domain.PoolHourly, nil
	case "DAILY", "2":
		return domain.PoolDaily, nil
	default:
		return 0, fmt.Errorf("unknown pool %q (use MIN30, HOURLY, or DAILY)", v)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, referral.ErrNoReferralRecorded):
		return http.StatusNotFound
	case errors.Is(err, lottery.ErrAlreadyDeposited),
		errors.Is(err, lottery.ErrFreeBetAlreadyActive),
		errors.Is(err, lottery.ErrEligibilityClaimed),
		errors.Is(err, lottery.ErrAlreadyDrawn):
		return http.StatusConflict
	case errors.Is(err, lottery.ErrBettingClosed),
		errors.Is(err, lottery.ErrBelowMinimum),
		errors.Is(err, lottery.ErrSelfReferral),
		errors.Is(err, lottery.ErrNoFreeBetAvailable),
		errors.Is(err, lottery.ErrTooEarlyForDraw),
		errors.Is(err, vesting.ErrRoundNotDrawn),
		errors.Is(err, vesting.ErrInvalidSlot),
		errors.Is(err, vesting.ErrEmptySlot),
		errors.Is(err, vesting.ErrNothingToClaim),
		errors.Is(err, referral.ErrRoundNotDrawn),
		errors.Is(err, vault.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// rejectionReason labels a rejected operation for the metrics counter.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, lottery.ErrBettingClosed):
		return "betting_closed"
	case errors.Is(err, lottery.ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, lottery.ErrSelfReferral):
		return "self_referral"
	case errors.Is(err, lottery.ErrAlreadyDeposited):
		return "already_deposited"
	case errors.Is(err, lottery.ErrFreeBetAlreadyActive):
		return "free_bet_active"
	case errors.Is(err, lottery.ErrEligibilityClaimed):
		return "eligibility_claimed"
	case errors.Is(err, lottery.ErrNoFreeBetAvailable):
		return "no_free_bet"
	case errors.Is(err, vesting.ErrNothingToClaim):
		return "nothing_to_claim"
	case errors.Is(err, vault.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
