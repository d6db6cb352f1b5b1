package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kushgupta-hiver/tttengine/internal/config"
	"github.com/kushgupta-hiver/tttengine/internal/engine"
	"github.com/kushgupta-hiver/tttengine/internal/search"
	"github.com/kushgupta-hiver/tttengine/internal/transport/httpapi"
	"github.com/kushgupta-hiver/tttengine/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "", "listen address, overrides config and ADDR")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	eng := engine.NewEngine()
	ai := search.NewSearcher(cfg.SearchOptions(log.Named("search")))

	wsSrv := ws.NewServer(ws.Config{
		OriginPatterns:     cfg.WS.OriginPatterns,
		InsecureSkipVerify: cfg.WS.InsecureSkipVerify,
		GracePeriod:        cfg.Match.GracePeriod,
		Searcher:           ai,
		Logger:             log.Named("ws"),
	}, eng)
	defer wsSrv.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(eng, ai, httpapi.Options{Logger: log.Named("http"), WS: wsSrv}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
