// Package checkpoint implements atomic, resumable persistence of a driver
// run's progress (spec component C8): the global aggregator, the
// contiguous-prefix watermark, and enough run identity to refuse a
// mismatched resume.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/turing"
)

// formatVersion is bumped whenever State's encoding changes incompatibly.
const formatVersion = 1

// State is the full persisted snapshot of a driver run (spec §4.8, §6).
type State struct {
	Version int

	N                  int
	StepBudget         uint64
	Mode               enumerate.Mode
	Blank              turing.Symbol
	BatchSize          uint64
	CompletionApplied  bool
	CompletedBatches   uint64 // contiguous-prefix watermark, in batch units
	EnumerationSize    uint64

	Counts    map[string]uint64
	NonHalt   map[turing.NonHaltReason]uint64
	TotalSeen uint64
}

// FromAggregator builds a State ready to persist from the driver's current
// run parameters and global aggregator.
func FromAggregator(n int, stepBudget uint64, mode enumerate.Mode, blank turing.Symbol, batchSize, completedBatches, enumerationSize uint64, agg *aggregate.Aggregator) State {
	return State{
		Version:           formatVersion,
		N:                 n,
		StepBudget:        stepBudget,
		Mode:              mode,
		Blank:             blank,
		BatchSize:         batchSize,
		CompletionApplied: agg.CompletionApplied,
		CompletedBatches:  completedBatches,
		EnumerationSize:   enumerationSize,
		Counts:            agg.Counts,
		NonHalt:           agg.NonHalt,
		TotalSeen:         agg.TotalSeen,
	}
}

// ToAggregator reconstructs the aggregator a persisted State was built from.
func (s State) ToAggregator() *aggregate.Aggregator {
	agg := aggregate.New()
	for k, v := range s.Counts {
		agg.Counts[k] = v
	}
	for k, v := range s.NonHalt {
		agg.NonHalt[k] = v
	}
	agg.TotalSeen = s.TotalSeen
	agg.CompletionApplied = s.CompletionApplied
	return agg
}

// Matches reports whether a resumed run's configuration is compatible with
// this checkpoint's. A mismatch (different n, mode, blank symbol, step
// budget, or batch size) means the checkpoint cannot be safely resumed
// against the new configuration (spec §4.8).
func (s State) Matches(n int, stepBudget uint64, mode enumerate.Mode, blank turing.Symbol, batchSize uint64) error {
	switch {
	case s.Version != formatVersion:
		return fmt.Errorf("checkpoint: format version %d, expected %d", s.Version, formatVersion)
	case s.N != n:
		return fmt.Errorf("checkpoint: n=%d does not match configured n=%d", s.N, n)
	case s.Mode != mode:
		return fmt.Errorf("checkpoint: enumeration mode %v does not match configured mode %v", s.Mode, mode)
	case s.Blank != blank:
		return fmt.Errorf("checkpoint: blank symbol %v does not match configured blank %v", s.Blank, blank)
	case s.StepBudget != stepBudget:
		return fmt.Errorf("checkpoint: step budget %d does not match configured budget %d", s.StepBudget, stepBudget)
	case s.BatchSize != batchSize:
		return fmt.Errorf("checkpoint: batch size %d does not match configured batch size %d", s.BatchSize, batchSize)
	}
	return nil
}

// Save persists state to path atomically: it is gob-encoded to a temp file
// in the same directory, then renamed over path, so a crash mid-write
// never leaves a partially-written checkpoint in place (spec §4.8).
func Save(path string, state State) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("checkpoint: rename into place: %w", err)
	}
	return nil
}

// Load reads and decodes the checkpoint at path. A missing file is
// reported via os.IsNotExist on the returned error, which callers treat as
// "start fresh" rather than a fatal condition.
func Load(path string) (State, error) {
	f, err := os.Open(path)
	if err != nil {
		return State{}, err
	}
	defer f.Close()

	var state State
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return State{}, fmt.Errorf("checkpoint: decode: %w", err)
	}
	return state, nil
}
