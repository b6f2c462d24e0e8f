// ctm runs the CTM enumeration driver to completion, optionally resuming
// from a checkpoint, and writes the finalised distribution file (spec §6).
// It is the thin, non-core CLI entry point spec.md §1 calls out as an
// external collaborator, shaped like the teacher's own flag-based
// init()/runApp() main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/checkpoint"
	"github.com/niceyeti/ctm/internal/config"
	"github.com/niceyeti/ctm/internal/distfile"
	"github.com/niceyeti/ctm/internal/driver"
	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/logging"
	"github.com/niceyeti/ctm/internal/monitor"
	"github.com/niceyeti/ctm/internal/simulate"
	"github.com/niceyeti/ctm/internal/turing"
)

var (
	configPath  *string
	monitorAddr *string
)

func init() {
	configPath = flag.String("config", "", "path to the driver config YAML file")
	monitorAddr = flag.String("monitor-addr", "", "if set, serve a live progress dashboard at this host:port")
	flag.Parse()
}

func main() {
	if err := runApp(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp() error {
	if *configPath == "" {
		return fmt.Errorf("ctm: -config is required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logging.New(logging.ParseLevel(cfg.LogLevel))

	mode := enumerate.Raw
	if cfg.UseReducedEnumeration {
		mode = enumerate.Reduced
	}
	blank := turing.Symbol(cfg.BlankSymbol)

	log.Infof("building %s enumeration for n=%d", modeName(mode), cfg.NStates)
	enum, err := enumerate.New(cfg.NStates, mode, blank)
	if err != nil {
		return fmt.Errorf("ctm: %w", err)
	}
	log.Infof("enumeration size: %d", enum.Size())

	d := &driver.Driver{
		Enumerator: enum,
		SimOptions: simulate.Options{
			StepBudget:          cfg.MaxRuntimeSteps,
			Blank:               blank,
			EnableEscapeeFilter: cfg.EnableEscapeeFilter,
			EnablePeriod2Filter: cfg.EnablePeriod2Filter,
		},
		BatchSize:          cfg.BatchSize,
		NumWorkers:         cfg.ResolvedNumProcesses(),
		CheckpointPath:     cfg.CheckpointPath,
		CheckpointInterval: cfg.CheckpointInterval(),
		Limit:              cfg.NumMachinesToRun,
	}

	startBatch := uint64(0)
	if cfg.CheckpointPath != "" {
		if cp, err := checkpoint.Load(cfg.CheckpointPath); err == nil {
			if matchErr := cp.Matches(cfg.NStates, cfg.MaxRuntimeSteps, mode, blank, cfg.BatchSize); matchErr != nil {
				return fmt.Errorf("ctm: checkpoint incompatible with this config: %w", matchErr)
			}
			log.Infof("resuming from checkpoint at batch %d", cp.CompletedBatches)
			startBatch = cp.CompletedBatches
			d.Seed = cp.ToAggregator()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("ctm: loading checkpoint: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var progressCh chan monitor.ProgressFrame
	if *monitorAddr != "" {
		progressCh = make(chan monitor.ProgressFrame, 1)
		srv := monitor.New(*monitorAddr, progressCh)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Errorf("monitor server: %v", err)
			}
		}()
		log.Infof("progress dashboard listening on %s", *monitorAddr)
	}

	d.Progress = func(completed, total uint64, global *aggregate.Aggregator) {
		log.Debugf("batch %d/%d merged, total_seen=%d", completed, total, global.TotalSeen)
		if progressCh == nil {
			return
		}
		frame := monitor.ProgressFrame{
			CompletedBatches: completed,
			TotalBatches:     total,
			TotalSeen:        global.TotalSeen,
			HaltingTotal:     haltingTotal(global),
			DistinctOutputs:  len(global.Counts),
		}
		select {
		case progressCh <- frame:
		default:
		}
	}

	global, watermark, err := d.Run(ctx, startBatch)
	if err != nil {
		return fmt.Errorf("ctm: run: %w", err)
	}

	if watermark == d.TotalBatches() && mode == enumerate.Reduced && !global.CompletionApplied {
		log.Infof("applying symmetry completion")
		global.ApplyCompletion(aggregate.CompletionParams{
			N:                    cfg.NStates,
			EscapeeFilterEnabled: cfg.EnableEscapeeFilter,
		})
	}

	f := distfile.Build(cfg.NStates, mode, blank, cfg.MaxRuntimeSteps, global, cfg.SaveRawCounts)
	if err := distfile.Save(cfg.OutputPath, f); err != nil {
		return fmt.Errorf("ctm: %w", err)
	}
	log.Infof("wrote distribution to %s (halting_total=%d)", cfg.OutputPath, f.HaltingTotal)

	return nil
}

func haltingTotal(agg *aggregate.Aggregator) uint64 {
	var total uint64
	for _, c := range agg.Counts {
		total += c
	}
	return total
}

func modeName(mode enumerate.Mode) string {
	if mode == enumerate.Reduced {
		return "reduced"
	}
	return "raw"
}
