package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/HerbHall/subnetsweep/internal/config"
	"github.com/HerbHall/subnetsweep/internal/fingerprint"
	"github.com/HerbHall/subnetsweep/internal/inventory"
	"github.com/HerbHall/subnetsweep/internal/logging"
	"github.com/HerbHall/subnetsweep/internal/metrics"
	"github.com/HerbHall/subnetsweep/internal/neighbor"
	"github.com/HerbHall/subnetsweep/internal/probe"
	"github.com/HerbHall/subnetsweep/internal/store"
	"github.com/HerbHall/subnetsweep/internal/subnet"
	"github.com/HerbHall/subnetsweep/internal/sweep"
	"github.com/HerbHall/subnetsweep/internal/tree"
	"github.com/HerbHall/subnetsweep/internal/version"
)

// runScan loads the credential records, sweeps every local subnet and
// renders the tree to out and, when configured, the report file.
func runScan(ctx context.Context, out io.Writer, folder string, s config.Settings) (err error) {
	logger, err := newLogger(s)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("SubnetSweep starting", version.Fields()...)

	records, loadErr := config.LoadRecords(folder)
	for _, e := range multierr.Errors(loadErr) {
		logger.Warn("credential record skipped", zap.Error(e))
	}
	logger.Info("credential records loaded", zap.Int("count", len(records)))

	policy, err := subnet.ParseLoopbackPolicy(s.Scan.LoopbackPolicy)
	if err != nil {
		return err
	}
	engine, err := probe.ParseEngine(s.ICMP.Engine)
	if err != nil {
		return err
	}

	var opts []tree.Option

	if s.Store.Path != "" {
		st, openErr := openHistory(ctx, s.Store.Path)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, st.Close()) }()
		opts = append(opts, tree.WithRecorder(inventory.NewSQLiteSweepRepository(st.DB())))
	}

	var sweepMetrics *metrics.Sweep
	if s.Metrics.Textfile != "" {
		sweepMetrics = metrics.New()
		opts = append(opts, tree.WithObserver(sweepMetrics))
	}

	if s.Neighbors.MDNS {
		opts = append(opts, tree.WithNeighbors(
			neighbor.NewFinder(s.Neighbors.Services, s.Neighbors.Timeout, logger.Named("neighbor"))))
	}

	// Each technique gets its own admission cap; they run concurrently.
	sweepLog := logger.Named("sweep")
	probeLog := logger.Named("probe")
	strategies := []tree.Strategy{
		probe.NewICMPStrategy(probe.NewEchoerFactory(engine, probeLog),
			sweep.NewScheduler(s.Scan.MaxInFlight, sweepLog.With(zap.String("technique", "icmp"))), probeLog),
		probe.NewTCPStrategy(nil,
			sweep.NewScheduler(s.Scan.MaxInFlight, sweepLog.With(zap.String("technique", "tcp"))), probeLog),
	}

	hardware := fingerprint.New(logger.Named("fingerprint"),
		fingerprint.WithTimeout(s.Hardware.Timeout)).Describe(ctx)

	t := tree.New(hardware)
	scanner := tree.NewScanner(t,
		subnet.NewResolver(policy, logger.Named("subnet")),
		subnet.SystemInterfaces,
		strategies,
		logger.Named("scanner"),
		opts...,
	)
	summaries := scanner.Scan(ctx)
	logger.Info("scan finished",
		zap.String("run_id", scanner.RunID()),
		zap.Int("subnets", len(summaries)),
	)

	if err := render(t, out, s.Report.File); err != nil {
		return err
	}

	if err := sweepMetrics.WriteTextfile(s.Metrics.Textfile); err != nil {
		logger.Warn("metrics not written", zap.Error(err))
	}
	return ctx.Err()
}

func newLogger(s config.Settings) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Verbosity:  s.Log.Verbosity,
		File:       s.Log.File,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		MaxAgeDays: s.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func openHistory(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := st.Migrate(ctx, inventory.Component, inventory.Migrations()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return st, nil
}

// render writes the tree to out, and to reportFile as well when it is set.
func render(t *tree.Tree, out io.Writer, reportFile string) error {
	if reportFile == "" {
		return t.Render(out, "")
	}
	f, err := os.Create(reportFile)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := t.Render(io.MultiWriter(out, f), ""); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
