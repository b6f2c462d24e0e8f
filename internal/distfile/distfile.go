// Package distfile implements the distribution file external interface
// (spec.md §6): the JSON artifact a driver run writes once at the end, and
// the downstream estimator CLI reads back.
package distfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/niceyeti/ctm/internal/aggregate"
	"github.com/niceyeti/ctm/internal/enumerate"
	"github.com/niceyeti/ctm/internal/turing"
)

// File is the on-disk shape of a finalised distribution (spec §6). Exactly
// one of Distribution or RawCounts is populated, per the driver's
// save_raw_counts option.
type File struct {
	N                 int                             `json:"n"`
	M                 int                             `json:"m"`
	MaxRuntimeSteps   uint64                          `json:"max_runtime_steps"`
	BlankSymbol       int                             `json:"blank_symbol"`
	Enumeration       string                          `json:"enumeration"`
	CompletionApplied bool                            `json:"completion_applied"`
	HaltingTotal      uint64                          `json:"halting_total"`
	NonHalting        map[turing.NonHaltReason]uint64 `json:"non_halting"`
	Distribution      aggregate.Distribution          `json:"distribution,omitempty"`
	RawCounts         map[string]uint64               `json:"raw_counts,omitempty"`
}

// enumerationName renders an enumerate.Mode the way spec §6 spells it.
func enumerationName(mode enumerate.Mode) string {
	if mode == enumerate.Reduced {
		return "reduced"
	}
	return "raw"
}

// Build assembles a File from a finalised (and, if reduced, completed)
// aggregator and the run parameters that produced it. saveRawCounts
// selects which of Distribution/RawCounts is populated, per the driver's
// save_raw_counts option (spec §6).
func Build(n int, mode enumerate.Mode, blank turing.Symbol, maxRuntimeSteps uint64, agg *aggregate.Aggregator, saveRawCounts bool) File {
	var halting uint64
	for _, c := range agg.Counts {
		halting += c
	}

	f := File{
		N:                 n,
		M:                 2,
		MaxRuntimeSteps:   maxRuntimeSteps,
		BlankSymbol:       int(blank),
		Enumeration:       enumerationName(mode),
		CompletionApplied: agg.CompletionApplied,
		HaltingTotal:      halting,
		NonHalting:        agg.NonHalt,
	}
	if saveRawCounts {
		f.RawCounts = agg.Counts
	} else {
		f.Distribution = agg.Finalise()
	}
	return f
}

// Save writes f as JSON to path.
func Save(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("distfile: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("distfile: write %s: %w", path, err)
	}
	return nil
}

// Load reads and decodes the distribution file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("distfile: read %s: %w", path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("distfile: unmarshal %s: %w", path, err)
	}
	return f, nil
}

// AsDistribution returns f's probability distribution, deriving it from
// RawCounts (divided by the sum of RawCounts alone, matching
// Aggregator.Finalise's halting-only denominator) when the file was saved
// with save_raw_counts instead of a precomputed distribution.
func (f File) AsDistribution() aggregate.Distribution {
	if f.Distribution != nil {
		return f.Distribution
	}

	var halting uint64
	for _, c := range f.RawCounts {
		halting += c
	}

	d := make(aggregate.Distribution, len(f.RawCounts))
	if halting == 0 {
		return d
	}
	for s, c := range f.RawCounts {
		d[s] = float64(c) / float64(halting)
	}
	return d
}
