// Command authcore-loadtest hammers an Engine and checks its single-use
// guarantees under contention.
//
// Phase "login" runs password logins for seeded accounts. Phase "mfa-race"
// starts one MFA login per account and fires -racers concurrent submissions
// of the correct code; exactly one per account may succeed. Phase "reset-race"
// does the same for password reset tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/store/memory"
)

const loadPassword = "Load!Test2026"

func main() {
	var (
		accounts    = flag.Int("accounts", 200, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 32, "workers for the login phase")
		ops         = flag.Int("ops", 2000, "logins in the login phase")
		racers      = flag.Int("racers", 16, "concurrent submissions per challenge")
		redisAddr   = flag.String("redis-addr", "", "redis address; miniredis when empty")
		argonMemory = flag.Uint("argon-memory", 8*1024, "argon2id memory in KiB")
		quiet       = flag.Bool("quiet", false, "skip the banner")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 {
		logger.Error().Msg("accounts, concurrency, ops and racers must be > 0")
		os.Exit(2)
	}
	if !*quiet {
		figure.NewFigure("authcore", "cybermedium", true).Print()
		fmt.Println()
	}

	client, cleanup, err := openRedis(*redisAddr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer cleanup()

	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-secret-loadtest-secret-32b")
	cfg.Password.Memory = uint32(*argonMemory)
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	outbox := notify.NewOutbox()
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserRepository(memory.NewUsers()).
		WithNotifier(outbox).
		WithLogger(logger.Level(zerolog.WarnLevel)).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}
	defer engine.Close()

	ctx := context.Background()
	emails, err := seed(ctx, engine, outbox, *accounts)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Int("accounts", len(emails)).Msg("seeded")

	loginStats := runLoginPhase(ctx, engine, emails, *ops, *concurrency)
	mfaWins, mfaViolations := runMFARace(ctx, engine, outbox, emails, *racers)
	resetWins, resetViolations := runResetRace(ctx, engine, outbox, emails, *racers)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	fmt.Printf("mfa-race: challenges=%d successes=%d violations=%d\n", len(emails), mfaWins, mfaViolations)
	fmt.Printf("reset-race: tokens=%d successes=%d violations=%d\n", len(emails), resetWins, resetViolations)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: login_success=%d mfa_required=%d mfa_success=%d mfa_failure=%d\n",
		snap.Counters[authcore.MetricLoginSuccess],
		snap.Counters[authcore.MetricMFALoginRequired],
		snap.Counters[authcore.MetricMFALoginSuccess],
		snap.Counters[authcore.MetricMFALoginFailure],
	)

	if mfaViolations > 0 || resetViolations > 0 {
		logger.Error().Msg("single-use guarantee violated")
		os.Exit(1)
	}
}

func openRedis(addr string, logger zerolog.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv(authcore.EnvRedisAddr)
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info().Str("addr", addr).Msg("using redis")
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info().Str("addr", mr.Addr()).Msg("using miniredis")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// seed registers accounts; every odd account gets MFA.
func seed(ctx context.Context, engine *authcore.Engine, outbox *notify.Outbox, n int) ([]string, error) {
	emails := make([]string, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("load%05d@example.com", i)
		_, err := engine.Register(ctx, authcore.RegisterRequest{
			Email:    email,
			Username: fmt.Sprintf("load%05d", i),
			Name:     "Load Test",
			Password: loadPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", email, err)
		}
		emails = append(emails, email)

		if i%2 == 1 {
			if err := enableMFA(ctx, engine, outbox, email); err != nil {
				return nil, err
			}
		}
	}
	return emails, nil
}

func enableMFA(ctx context.Context, engine *authcore.Engine, outbox *notify.Outbox, email string) error {
	res, err := engine.Authenticate(ctx, email, loadPassword)
	if err != nil {
		return err
	}
	if _, err := engine.SetupMFA(ctx, res.Tokens.AccessToken); err != nil {
		return err
	}
	code, _ := outbox.LastCode(email, "setup")
	return engine.VerifyMFASetup(ctx, res.Tokens.AccessToken, code)
}

func runLoginPhase(ctx context.Context, engine *authcore.Engine, emails []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := engine.Authenticate(ctx, emails[i%len(emails)], loadPassword)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runMFARace returns how many challenges were won and how many were won
// more than once.
func runMFARace(ctx context.Context, engine *authcore.Engine, outbox *notify.Outbox, emails []string, racers int) (int, int) {
	wins, violations := 0, 0
	for _, email := range emails {
		res, err := engine.Authenticate(ctx, email, loadPassword)
		if err != nil || !res.MFARequired {
			continue
		}
		code, ok := outbox.LastCode(email, "login")
		if !ok {
			continue
		}

		n := race(racers, func() bool {
			_, err := engine.SubmitMFALogin(ctx, email, code)
			return err == nil
		})
		if n >= 1 {
			wins++
		}
		if n > 1 {
			violations++
		}
	}
	return wins, violations
}

func runResetRace(ctx context.Context, engine *authcore.Engine, outbox *notify.Outbox, emails []string, racers int) (int, int) {
	wins, violations := 0, 0
	for _, email := range emails {
		token, err := engine.RequestPasswordReset(ctx, email)
		if err != nil {
			continue
		}
		n := race(racers, func() bool {
			return engine.ConfirmPasswordReset(ctx, token, loadPassword) == nil
		})
		if n >= 1 {
			wins++
		}
		if n > 1 {
			violations++
		}
	}
	return wins, violations
}

func race(racers int, attempt func() bool) int {
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		success atomic.Int32
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if attempt() {
				success.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	return int(success.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
