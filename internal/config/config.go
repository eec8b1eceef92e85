package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/satindergrewal/chaincraft/internal/fabricator"
	"github.com/satindergrewal/chaincraft/internal/model"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Chain
	ChainName   string
	ContentPath string        // YAML content library
	DBPath      string        // SQLite chain store
	BufferAhead time.Duration // crafted audio kept ahead of playback
	ExportDir   string        // MIDI export directory, empty to disable

	// Fabrication
	DeltaArcEnabled      bool
	DetailPlateauRatio   float64
	PercLoopPlateauRatio float64
	PercLoopLayerMin     int
	PercLoopLayerMax     int
	DensityFloor         float64
	DensityCeiling       float64
	IntroFadeBeats       float64
	InversionTypes       []string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("RADIO_PORT", 8080),

		ChainName:   envStr("CHAIN_NAME", "main"),
		ContentPath: envStr("CHAIN_CONTENT_PATH", "content.yaml"),
		DBPath:      envStr("CHAIN_DB_PATH", "chain.db"),
		BufferAhead: time.Duration(envInt("CHAIN_BUFFER_AHEAD", 60)) * time.Second,
		ExportDir:   envStr("CHAIN_EXPORT_DIR", ""),

		DeltaArcEnabled:      envBool("FAB_DELTA_ARC_ENABLED", true),
		DetailPlateauRatio:   envFloat("FAB_DETAIL_PLATEAU_RATIO", 0.38),
		PercLoopPlateauRatio: envFloat("FAB_PERC_LOOP_PLATEAU_RATIO", 0.38),
		PercLoopLayerMin:     envInt("FAB_PERC_LOOP_LAYER_MIN", 1),
		PercLoopLayerMax:     envInt("FAB_PERC_LOOP_LAYER_MAX", 3),
		DensityFloor:         envFloat("FAB_DENSITY_FLOOR", 0.1),
		DensityCeiling:       envFloat("FAB_DENSITY_CEILING", 0.9),
		IntroFadeBeats:       envFloat("FAB_INTRO_FADE_BEATS", 4),
		InversionTypes:       envList("FAB_INVERSION_TYPES", []string{"Pad", "Stab", "Sticky"}),
	}
}

// Fabrication returns the craft settings handed to every fabricator.
// Unknown inversion types are ignored.
func (c Config) Fabrication() fabricator.Config {
	fc := fabricator.Config{
		DeltaArcEnabled:      c.DeltaArcEnabled,
		DetailPlateauRatio:   c.DetailPlateauRatio,
		PercLoopPlateauRatio: c.PercLoopPlateauRatio,
		PercLoopLayerMin:     c.PercLoopLayerMin,
		PercLoopLayerMax:     c.PercLoopLayerMax,
		DensityFloor:         c.DensityFloor,
		DensityCeiling:       c.DensityCeiling,
		IntroFadeBeats:       c.IntroFadeBeats,
	}
	for _, name := range c.InversionTypes {
		t := model.InstrumentType(name)
		if err := model.ValidateInstrumentType(t); err != nil {
			log.Printf("Ignoring inversion type: %v", err)
			continue
		}
		fc.InversionTypes = append(fc.InversionTypes, t)
	}
	return fc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envList reads a comma-separated list, trimming blanks.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
