// Package disks holds the geometry preset table Format auto-sizing picks
// between, the same way the teacher's disks package tabulates real
// floppy/HDD geometries rather than hardcoding them inline.
package disks

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Preset is one disk-size tier's default geometry: the fixed BPB fields
// Format fills in before the sectors-per-cluster doubling loop takes
// over.
type Preset struct {
	Slug              string `csv:"slug"`
	Name              string `csv:"name"`
	MaxSectors        uint64 `csv:"max_sectors"`
	SectorsPerCluster uint8  `csv:"sectors_per_cluster"`
	RootEntryCount    uint16 `csv:"root_entry_count"`
	SectorsPerTrack   uint16 `csv:"sectors_per_track"`
	Heads             uint16 `csv:"heads"`
	MediaType         uint8  `csv:"media_type"`
}

//go:embed disk-geometries.csv
var rawPresets string

var presets []Preset

func init() {
	err := gocsv.UnmarshalToCallback(strings.NewReader(rawPresets), func(row Preset) error {
		presets = append(presets, row)
		return nil
	})
	if err != nil {
		panic(fmt.Errorf("disks: malformed built-in geometry table: %w", err))
	}
}

// PresetFor returns the narrowest tier whose MaxSectors covers
// totalSectors. The table is ordered smallest-tier-first, so the first
// match is always the tightest fit.
func PresetFor(totalSectors uint64) Preset {
	for _, p := range presets {
		if totalSectors <= p.MaxSectors {
			return p
		}
	}
	return presets[len(presets)-1]
}

// Lookup returns the named preset by slug, for callers (format subcommand
// flags) that want a specific tier instead of size-based auto-selection.
func Lookup(slug string) (Preset, error) {
	for _, p := range presets {
		if strings.EqualFold(p.Slug, slug) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("disks: no preset named %q", slug)
}

// All returns every known preset, smallest tier first.
func All() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}
