package cmd

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/mezonai/blockarchive/blockstore"
	"github.com/mezonai/blockarchive/config"
	"github.com/mezonai/blockarchive/exception"
	"github.com/mezonai/blockarchive/logx"
	"github.com/mezonai/blockarchive/monitoring"
	"github.com/mezonai/blockarchive/producer"
)

// session bundles what every subcommand needs after config is loaded.
type session struct {
	cfg   *config.Config
	store config.StoreConfig
	index *blockstore.HeightIndex
}

func loadSession() (*session, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	initializeFileLogger(cfg.Log)
	return &session{
		cfg:   cfg,
		store: cfg.Store.Resolve(dataDir),
	}, nil
}

func initializeFileLogger(lc config.LogConfig) {
	dir := lc.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(dataDir, dir)
	}
	logx.Init(logx.Options{
		Dir:        dir,
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxAgeDays: lc.MaxAgeDays,
		Stdout:     lc.Stdout,
	})
}

// openIndex opens the height index if one is configured; nil otherwise.
func (s *session) openIndex() (*blockstore.HeightIndex, error) {
	if s.cfg.Index.Dir == "" {
		return nil, nil
	}
	if s.index != nil {
		return s.index, nil
	}
	dir := s.cfg.Index.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(dataDir, dir)
	}
	idx, err := blockstore.OpenHeightIndex(dir)
	if err != nil {
		return nil, err
	}
	s.index = idx
	return idx, nil
}

func (s *session) newProducer() (*producer.Producer, error) {
	idx, err := s.openIndex()
	if err != nil {
		return nil, err
	}

	var opts []producer.Option
	if idx != nil {
		opts = append(opts, producer.WithHeightIndex(idx))
	}
	return producer.NewProducer(s.store, opts...)
}

// startMetricsServer exposes /metrics when a listen address is configured.
func (s *session) startMetricsServer() {
	monitoring.InitMetrics()
	addr := s.cfg.Metrics.ListenAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	exception.SafeGo("metrics-server", func() {
		logx.Info("MONITORING", "Serving metrics on ", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error("MONITORING", "Metrics server stopped: ", err)
		}
	})
}

func (s *session) close() {
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			logx.Error("CMD", "Failed to close height index: ", err)
		}
		s.index = nil
	}
}
