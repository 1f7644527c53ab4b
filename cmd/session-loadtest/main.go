package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/broadcast"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		instances   = flag.Int("instances", 8, "number of managers sharing one session")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (refresh + check)")
		latency     = flag.Duration("server-latency", 5*time.Millisecond, "simulated auth server latency")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "session key prefix")
	)
	flag.Parse()

	if *instances <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "instances, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	server := &simulatedServer{latency: *latency}
	cfg := goSession.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	managers := make([]*goSession.Manager, *instances)
	for i := range managers {
		ch := broadcast.NewRedisChannel(client, *prefix, goSession.SignalKeys(cfg))
		defer ch.Close()
		m, err := goSession.New().
			WithConfig(cfg).
			WithClient(server).
			WithTokenStore(tokenstore.NewRedisStore(client, *prefix, goSession.TokenKeys(cfg))).
			WithBroadcaster(ch).
			WithLogger(log.New(io.Discard, "", 0)).
			Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
			os.Exit(1)
		}
		defer m.Close()
		if err := m.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "start failed: %v\n", err)
			os.Exit(1)
		}
		managers[i] = m
	}

	startSeed := time.Now()
	if _, err := managers[0].Login(ctx, goSession.Credentials{Email: "load@example.com", Password: "load"}); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	for _, m := range managers[1:] {
		m.CheckAuth(ctx)
	}
	fmt.Printf("seeded %d instances in %s\n", *instances, time.Since(startSeed).Round(time.Millisecond))

	refreshStats := runPhase(ctx, managers, *ops, *concurrency, func(ctx context.Context, m *goSession.Manager) bool {
		return m.RefreshSession(ctx)
	})
	refreshCalls := server.refreshCalls.Load()

	checkStats := runPhase(ctx, managers, *ops, *concurrency, func(ctx context.Context, m *goSession.Manager) bool {
		m.CheckAuth(ctx)
		return m.HasPermission("loadtest.read")
	})

	fmt.Println("---- results ----")
	printStats("refresh", refreshStats)
	fmt.Printf("refresh: server calls=%d coalesced=%d\n", refreshCalls, coalesced(managers))
	printStats("check", checkStats)
}

func runPhase(ctx context.Context, managers []*goSession.Manager, ops, concurrency int, op func(context.Context, *goSession.Manager) bool) phaseStats {
	var (
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < concurrency; w++ {
		worker := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return nil
				}
				m := managers[r.Intn(len(managers))]
				t0 := time.Now()
				ok := op(gctx, m)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func coalesced(managers []*goSession.Manager) uint64 {
	var n uint64
	for _, m := range managers {
		n += m.MetricsSnapshot().Counters[goSession.MetricRefreshCoalesced]
	}
	return n
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

// simulatedServer answers every call after a fixed delay and hands out a
// fresh pair on each refresh.
type simulatedServer struct {
	latency      time.Duration
	seq          atomic.Uint64
	refreshCalls atomic.Uint64
}

func (s *simulatedServer) wait(ctx context.Context) error {
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *simulatedServer) user() *goSession.User {
	return &goSession.User{
		ID:            "load-user",
		Email:         "load@example.com",
		Role:          goSession.Role{ID: "r-member", Name: "member"},
		Permissions:   []string{"loadtest.read"},
		AccountStatus: goSession.AccountActive,
	}
}

func (s *simulatedServer) pair() (string, string) {
	n := strconv.FormatUint(s.seq.Add(1), 10)
	return "access-" + n, "refresh-" + n
}

func (s *simulatedServer) Login(ctx context.Context, _, _ string) (*goSession.LoginResponse, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	access, refresh := s.pair()
	return &goSession.LoginResponse{
		User:         s.user(),
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    3600,
		FullAccess:   true,
	}, nil
}

func (s *simulatedServer) Register(ctx context.Context, _ goSession.RegisterRequest) (*goSession.RegisterResponse, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &goSession.RegisterResponse{AccountStatus: goSession.AccountPendingValidation}, nil
}

func (s *simulatedServer) RefreshToken(ctx context.Context, _ string) (*goSession.RefreshResponse, error) {
	s.refreshCalls.Add(1)
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	access, refresh := s.pair()
	return &goSession.RefreshResponse{AccessToken: access, RefreshToken: refresh, ExpiresIn: 3600}, nil
}

func (s *simulatedServer) Logout(ctx context.Context, _ string) error {
	return s.wait(ctx)
}

func (s *simulatedServer) GetProfile(ctx context.Context, _ string) (*goSession.User, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.user(), nil
}

func (s *simulatedServer) GetAccountStatus(ctx context.Context, _ string) (*goSession.AccountStatusInfo, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &goSession.AccountStatusInfo{
		AccountStatus:    goSession.AccountActive,
		ValidationStatus: goSession.ValidationValidated,
		AccessLevel:      "FULL",
	}, nil
}
