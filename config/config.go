package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cliptrack/cliptrack"
	"github.com/cliptrack/cliptrack/editor"
	"github.com/cliptrack/cliptrack/logger"
)

// Config stores the defaults of new sessions and the tunables of the editor.
type Config struct {
	SampleRate   int     `yaml:"sampleRate"`
	TicksPerBeat int     `yaml:"ticksPerBeat"`
	SnapPerBeat  int     `yaml:"snapPerBeat"`
	Tempo        float64 `yaml:"tempo"`
	BeatsPerBar  int     `yaml:"beatsPerBar"`
	BeatDivisor  int     `yaml:"beatDivisor"`

	BufferSize        int    `yaml:"bufferSize"`
	SyncInterval      int    `yaml:"syncInterval"`
	MaxSyncPolls      int    `yaml:"maxSyncPolls"`
	StabilizeInterval int    `yaml:"stabilizeInterval"`
	MidiFormat        int    `yaml:"midiFormat"`
	AudioBitDepth     int    `yaml:"audioBitDepth"`
	FilePathTemplate  string `yaml:"filePathTemplate"`
	DropSpan          bool   `yaml:"dropSpan"`

	// CatalogPath is the sqlite database of the files used by sessions;
	// empty disables the catalog.
	CatalogPath string `yaml:"catalogPath"`

	Log logger.Config `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := editor.DefaultOptions()
	return Config{
		SampleRate:        44100,
		TicksPerBeat:      960,
		SnapPerBeat:       4,
		Tempo:             120,
		BeatsPerBar:       4,
		BeatDivisor:       2,
		BufferSize:        opts.BufferSize,
		SyncInterval:      opts.SyncInterval,
		MaxSyncPolls:      opts.MaxSyncPolls,
		StabilizeInterval: opts.StabilizeInterval,
		MidiFormat:        opts.MidiFormat,
		AudioBitDepth:     16,
		FilePathTemplate:  opts.FilePathTemplate,
		Log:               logger.Config{Level: logger.InfoLevel, MaxSize: 10, MaxBackups: 3, MaxAge: 28},
	}
}

// Load returns the default configuration overridden by the YAML file at
// path, if given, and then by CLIPTRACK_* environment variables. A .env
// file in the working directory is loaded first; it never overrides
// variables that are already set.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("could not read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("could not unmarshal config: %w", err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, fmt.Errorf("could not load .env: %w", err)
	}
	c.applyEnv()
	return c, c.Validate()
}

func (c *Config) applyEnv() {
	envInt("CLIPTRACK_SAMPLE_RATE", &c.SampleRate)
	envInt("CLIPTRACK_TICKS_PER_BEAT", &c.TicksPerBeat)
	envInt("CLIPTRACK_BUFFER_SIZE", &c.BufferSize)
	envInt("CLIPTRACK_MIDI_FORMAT", &c.MidiFormat)
	envInt("CLIPTRACK_AUDIO_BIT_DEPTH", &c.AudioBitDepth)
	if v, ok := os.LookupEnv("CLIPTRACK_TEMPO"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tempo = f
		}
	}
	if v, ok := os.LookupEnv("CLIPTRACK_CATALOG"); ok {
		c.CatalogPath = v
	}
	if v, ok := os.LookupEnv("CLIPTRACK_LOG_LEVEL"); ok {
		c.Log.Level = logger.Level(v)
	}
	if v, ok := os.LookupEnv("CLIPTRACK_LOG_FILE"); ok {
		c.Log.OutputPath = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

// Validate checks the session defaults.
func (c *Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	case c.TicksPerBeat <= 0:
		return fmt.Errorf("invalid ticks per beat %d", c.TicksPerBeat)
	case c.Tempo <= 0:
		return fmt.Errorf("invalid tempo %v", c.Tempo)
	case c.MidiFormat != 0 && c.MidiFormat != 1:
		return fmt.Errorf("invalid midi format %d", c.MidiFormat)
	case c.AudioBitDepth != 16 && c.AudioBitDepth != 24 && c.AudioBitDepth != 32:
		return fmt.Errorf("invalid audio bit depth %d", c.AudioBitDepth)
	}
	return nil
}

// Options converts the configuration to editor options.
func (c *Config) Options() editor.Options {
	return editor.Options{
		BufferSize:        c.BufferSize,
		SyncInterval:      c.SyncInterval,
		MaxSyncPolls:      c.MaxSyncPolls,
		StabilizeInterval: c.StabilizeInterval,
		MidiFormat:        c.MidiFormat,
		AudioExt:          "wav",
		FilePathTemplate:  c.FilePathTemplate,
		DropSpan:          c.DropSpan,
	}
}

// NewSession returns an empty session with the configured time scale.
func (c *Config) NewSession(name string) cliptrack.Session {
	s := cliptrack.NewSession(name, c.SampleRate, c.TicksPerBeat)
	s.TimeScale = cliptrack.NewTimeScale(c.SampleRate, c.TicksPerBeat, c.Tempo, c.BeatsPerBar, c.BeatDivisor)
	if c.SnapPerBeat > 0 {
		s.TimeScale.SnapPerBeat = c.SnapPerBeat
	}
	return s
}
