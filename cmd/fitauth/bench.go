package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	fitAuth "github.com/fitlife/fitAuth"
	otelexport "github.com/fitlife/fitAuth/metrics/export/otel"
	promexport "github.com/fitlife/fitAuth/metrics/export/prometheus"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

const benchPassword = "bench-pass-1"

var (
	benchUsers       int
	benchConcurrency int
	benchRounds      int
	benchOffline     bool
	benchPrometheus  bool
	benchOTel        bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Runs concurrent login and logout cycles against an in-process stub",
	Long: `Registers a pool of users, then runs login/logout cycles from several
tabs at once and reports latency percentiles. With --offline the stub answers
503 and every cycle takes the offline fallback path. Usage:

	fitauth bench --users 20 --concurrency 4 --rounds 50 --prometheus
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchUsers <= 0 || benchConcurrency <= 0 || benchRounds <= 0 {
			return errors.New("users, concurrency, and rounds must be > 0")
		}
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.log = rt.log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))

		ctx := cmd.Context()
		baseURL, shutdown, err := startBenchStub(rt)
		if err != nil {
			return err
		}
		defer shutdown()
		rt.cfg.Auth.Remote.Enabled = true
		rt.cfg.Auth.Remote.BaseURL = baseURL

		out := cmd.OutOrStdout()
		emails, err := seedBenchUsers(ctx, rt, benchUsers)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %d users\n", len(emails))

		engines := make(engineSet, benchConcurrency)
		for w := range engines {
			if engines[w], err = rt.engine(fmt.Sprintf("bench-%d", w)); err != nil {
				return err
			}
			defer engines[w].Close()
		}

		login, logout := runCycles(ctx, engines, emails, benchRounds)

		fmt.Fprintln(out, "---- results ----")
		printStats(out, "login", login)
		printStats(out, "logout", logout)

		if benchPrometheus {
			fmt.Fprintln(out, "---- prometheus ----")
			fmt.Fprint(out, promexport.NewExporter(engines).Render())
		}
		if benchOTel {
			fmt.Fprintln(out, "---- opentelemetry ----")
			if err := printOTel(ctx, out, engines); err != nil {
				return err
			}
		}
		return nil
	},
}

func startBenchStub(rt *runtime) (string, func(), error) {
	handler, srv, err := newStubHandler(rt.cfg)
	if err != nil {
		return "", nil, err
	}
	srv.SetAvailable(!benchOffline)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	httpSrv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = httpSrv.Serve(ln) }()

	return "http://" + ln.Addr().String() + "/api", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}, nil
}

// seedBenchUsers registers the pool one user at a time from a single tab.
func seedBenchUsers(ctx context.Context, rt *runtime, n int) ([]string, error) {
	engine, err := rt.engine("bench-setup")
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	run := time.Now().UnixNano()
	emails := make([]string, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("bench-%d-%d@fitlife.test", run, i)
		_, err := engine.Register(ctx, fitAuth.RegisterRequest{
			Email:           email,
			Password:        benchPassword,
			ConfirmPassword: benchPassword,
			Name:            fmt.Sprintf("Bench User %d", i),
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", email, err)
		}
		if err := engine.Logout(ctx); err != nil {
			return nil, fmt.Errorf("logout %s: %w", email, err)
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// runCycles gives each engine its own worker; workers draw cycles from a
// shared cursor until rounds*len(engines) cycles have run.
func runCycles(ctx context.Context, engines engineSet, emails []string, rounds int) (phaseStats, phaseStats) {
	total := rounds * len(engines)
	var (
		wg             sync.WaitGroup
		cursor         int64
		loginFailures  int64
		logoutFailures int64
		mu             sync.Mutex
		loginLat       = make([]time.Duration, 0, total)
		logoutLat      = make([]time.Duration, 0, total)
	)

	start := time.Now()
	for w, engine := range engines {
		wg.Add(1)
		go func(worker int, engine *fitAuth.Engine) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > total {
					return
				}
				creds := fitAuth.Credentials{Email: emails[r.Intn(len(emails))], Password: benchPassword}

				t0 := time.Now()
				_, err := engine.Login(ctx, creds, fitAuth.LoginOptions{})
				dLogin := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&loginFailures, 1)
				}

				t1 := time.Now()
				err = engine.Logout(ctx)
				dLogout := time.Since(t1)
				if err != nil {
					atomic.AddInt64(&logoutFailures, 1)
				}

				mu.Lock()
				loginLat = append(loginLat, dLogin)
				logoutLat = append(logoutLat, dLogout)
				mu.Unlock()
			}
		}(w, engine)
	}
	wg.Wait()
	elapsed := time.Since(start)
	return computeStats(elapsed, loginLat, loginFailures), computeStats(elapsed, logoutLat, logoutFailures)
}

// engineSet merges the metrics of several engines into one source.
type engineSet []*fitAuth.Engine

func (s engineSet) MetricsSnapshot() fitAuth.MetricsSnapshot {
	out := fitAuth.MetricsSnapshot{
		Counters:   map[fitAuth.MetricID]uint64{},
		Histograms: map[fitAuth.MetricID][]uint64{},
	}
	for _, e := range s {
		mergeSnapshot(&out, e.MetricsSnapshot())
	}
	return out
}

func (s engineSet) AuditDropped() uint64 {
	var n uint64
	for _, e := range s {
		n += e.AuditDropped()
	}
	return n
}

func mergeSnapshot(dst *fitAuth.MetricsSnapshot, src fitAuth.MetricsSnapshot) {
	for id, v := range src.Counters {
		dst.Counters[id] += v
	}
	for id, buckets := range src.Histograms {
		acc := dst.Histograms[id]
		if len(acc) < len(buckets) {
			grown := make([]uint64, len(buckets))
			copy(grown, acc)
			acc = grown
		}
		for i, v := range buckets {
			acc[i] += v
		}
		dst.Histograms[id] = acc
	}
}

func printOTel(ctx context.Context, w io.Writer, source otelexport.Source) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	exp, err := otelexport.NewExporter(provider.Meter("github.com/fitlife/fitAuth/cmd/fitauth"), source)
	if err != nil {
		return err
	}
	defer exp.Close()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "%s %d\n", m.Name, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					fmt.Fprintf(w, "%s %d\n", m.Name, dp.Value)
				}
			}
		}
	}
	return nil
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
		return phaseStats{total: total, failures: failures}
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

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVar(&benchUsers, "users", 20, "accounts to register before the run")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 4, "tabs cycling concurrently")
	benchCmd.Flags().IntVar(&benchRounds, "rounds", 25, "login/logout cycles per tab")
	benchCmd.Flags().BoolVar(&benchOffline, "offline", false, "stub answers 503; exercise the offline path")
	benchCmd.Flags().BoolVar(&benchPrometheus, "prometheus", false, "print engine metrics in Prometheus text format")
	benchCmd.Flags().BoolVar(&benchOTel, "otel", false, "print engine metrics collected through OpenTelemetry")
}
