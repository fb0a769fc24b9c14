// Command fromcheck is a milter that flags messages whose From: display name
// names a different domain than the sender address. It adds X-From-Checked
// and X-From-Suspicious headers and never rejects mail.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andybalholm/fromcheck/fromcheck"
	"github.com/andybalholm/fromcheck/internal/config"
	"github.com/andybalholm/fromcheck/milter"
)

func main() {
	envFile := flag.String("env", ".env", "file with KEY=VALUE settings; the environment wins")
	socket := flag.String("socket", "", "milter socket, e.g. inet:8890@127.0.0.1 or unix:/path (overrides "+config.EnvSocket+")")
	timeout := flag.String("timeout", "", "timeout for each exchange with the MTA (overrides "+config.EnvTimeout+")")
	logLevel := flag.String("loglevel", "", "debug, info, warn or error (overrides "+config.EnvLogLevel+")")
	metricsAddr := flag.String("metrics", "", "address to serve /metrics on (overrides "+config.EnvMetricsAddr+")")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("loading env file", slog.String("path", *envFile), slog.Any("err", err))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", slog.Any("err", err))
		os.Exit(1)
	}
	if err := applyFlags(&cfg, *socket, *timeout, *logLevel, *metricsAddr); err != nil {
		slog.Error("parsing flags", slog.Any("err", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("milter stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config, socket, timeout, logLevel, metricsAddr string) error {
	if socket != "" {
		cfg.Socket = socket
	}
	if timeout != "" {
		d, err := config.ParseTimeout(timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if logLevel != "" {
		l, err := config.ParseLogLevel(logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = l
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	return nil
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := milter.Listen(cfg.Socket)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		hs := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", slog.Any("err", err))
			}
		}()
		defer hs.Close()
	}

	srv := &milter.Server{
		NewMilter: func() milter.Milter {
			return fromcheck.NewSession(log)
		},
		Options: milter.Options{
			Actions:  milter.OptAddHeader,
			Protocol: milter.OptNoHelo | milter.OptNoMailFrom | milter.OptNoRcptTo | milter.OptNoBody | milter.OptNoUnknown | milter.OptNoData,
		},
		Timeout: cfg.Timeout,
		Logger:  log,
	}

	log.Info("starting milter",
		slog.String("socket", cfg.Socket),
		slog.Duration("timeout", cfg.Timeout),
		slog.String("metrics", cfg.MetricsAddr))
	err = srv.Serve(ctx, l)
	log.Info("milter finished running")
	return err
}
