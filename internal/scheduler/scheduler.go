// Package scheduler runs the periodic watchlist alert scan.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockDesk/internal/alert"
	"StockDesk/internal/model"
	"StockDesk/internal/store"
)

// Scheduler triggers alert scans over every pinned symbol on a cron spec.
type Scheduler struct {
	cron    *cron.Cron
	store   store.Store
	scanner *alert.Scanner
	log     *zap.Logger
	ctx     context.Context
}

func New(ctx context.Context, st store.Store, scanner *alert.Scanner, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		store:   st,
		scanner: scanner,
		log:     log,
		ctx:     ctx,
	}
}

// Register adds the scan task on the given six-field cron spec.
func (s *Scheduler) Register(alertCron string) error {
	if _, err := s.cron.AddFunc(alertCron, s.scanTask); err != nil {
		return fmt.Errorf("register alert scan: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

// RunScanNow executes the scan immediately, for startup warm-up.
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	symbols, err := s.store.AllWatchlistSymbols(s.ctx)
	if err != nil {
		s.log.Error("load watchlist symbols", zap.Error(err))
		return
	}
	if len(symbols) == 0 {
		s.log.Debug("no pinned symbols, skipping scan")
		return
	}

	alerts := s.scanner.Scan(s.ctx, symbols)

	var buys, sells int
	for _, a := range alerts {
		switch a.Signal {
		case model.SignalBuy:
			buys++
		case model.SignalSell:
			sells++
		}
	}
	s.log.Info("alert scan complete",
		zap.Int("symbols", len(symbols)),
		zap.Int("scanned", len(alerts)),
		zap.Int("buy", buys),
		zap.Int("sell", sells))
}
