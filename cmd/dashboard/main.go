// Command dashboard polls a set of JSON price endpoints through the
// revalidation engine and serves the latest snapshots over HTTP,
// with Prometheus metrics on /metrics.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/arbdash/revalid/fetcher"
	"github.com/arbdash/revalid/observe/logsink"
	"github.com/arbdash/revalid/observe/prom"
	"github.com/arbdash/revalid/swr"
)

// ticker is the JSON shape the polled endpoints return. Prices arrive
// as strings and are parsed with decimal to avoid float drift in the
// rendered output.
type ticker struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"lastPrice"`
	ChangePercent string `json:"priceChangePercent"`
}

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	metrics := prom.New[string](nil, "revalid", "dashboard", nil)

	eng := swr.New(swr.Options[string, ticker]{
		RefreshInterval:       cfg.RefreshInterval.Duration,
		DedupingInterval:      cfg.DedupingInterval.Duration,
		ErrorRetryCount:       cfg.ErrorRetryCount,
		LoadingTimeout:        cfg.LoadingTimeout.Duration,
		RevalidateOnReconnect: cfg.RevalidateOnReconnect,
		Fetcher:               fetcher.JSON[ticker](fetcher.New(cfg.BaseURL, cfg.RequestTimeout.Duration)),
		Observer:              tee[string]{metrics, logsink.New[string](log)},
	})
	defer func() { _ = eng.Close() }()

	// paths maps display name -> request path; the path doubles as the
	// engine key so every source gets its own refresh loop.
	paths := make(map[string]string, len(cfg.Sources))
	for _, src := range cfg.Sources {
		var opts []swr.KeyOption
		if src.RefreshInterval.Duration > 0 {
			opts = append(opts, swr.WithRefreshInterval(src.RefreshInterval.Duration))
		}
		if src.RetryCount != 0 {
			opts = append(opts, swr.WithRetryBudget(src.RetryCount))
		}
		res, err := eng.Subscribe(src.Path, nil, opts...)
		if err != nil {
			log.WithError(err).WithField("source", src.Name).Fatal("subscribe")
		}
		defer res.Close()
		paths[src.Name] = src.Path
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		renderSnapshots(w, eng, paths)
	})
	mux.HandleFunc("/reconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		eng.NotifyReconnect()
		w.WriteHeader(http.StatusNoContent)
	})

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("listen", cfg.Listen).Info("dashboard listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh
	log.Info("shutting down")
	_ = httpSrv.Close()
}

// renderSnapshots writes a plain-text table of the current state of
// every configured source.
func renderSnapshots(w http.ResponseWriter, eng swr.Engine[string, ticker], paths map[string]string) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, name := range names {
		snap, ok := eng.Peek(paths[name])
		if !ok || !snap.HasData {
			fmt.Fprintf(w, "%-12s loading...\n", name)
			continue
		}
		line := fmt.Sprintf("%-12s %s (%s%%)", name, formatPrice(snap.Data.Price), snap.Data.ChangePercent)
		if snap.Err != nil {
			line += fmt.Sprintf("  [stale: %v]", snap.Err)
		}
		fmt.Fprintf(w, "%s  as of %s\n", line, snap.FetchedAt.Format(time.RFC3339))
	}
}

// formatPrice normalizes the upstream price string to two decimal
// places; unparseable input passes through untouched.
func formatPrice(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}

// tee fans observability events out to multiple observers.
type tee[K comparable] []swr.Observer[K]

func (t tee[K]) FetchAttempt(key K, at time.Time) {
	for _, o := range t {
		o.FetchAttempt(key, at)
	}
}

func (t tee[K]) FetchSuccess(key K, elapsed time.Duration, at time.Time) {
	for _, o := range t {
		o.FetchSuccess(key, elapsed, at)
	}
}

func (t tee[K]) FetchError(key K, err error, attempt int, at time.Time) {
	for _, o := range t {
		o.FetchError(key, err, attempt, at)
	}
}

func (t tee[K]) SlowLoading(key K, elapsed time.Duration, at time.Time) {
	for _, o := range t {
		o.SlowLoading(key, elapsed, at)
	}
}

func (t tee[K]) Dedup(key K) {
	for _, o := range t {
		o.Dedup(key)
	}
}

func (t tee[K]) ActiveKeys(n int) {
	for _, o := range t {
		o.ActiveKeys(n)
	}
}

var _ swr.Observer[string] = tee[string]{}
