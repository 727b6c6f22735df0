package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type OutputKind string

const (
	OutputAudio OutputKind = "audio"
	OutputWAV   OutputKind = "wav"
	OutputNone  OutputKind = "none"
)

// Config holds the instrument settings. Values come from the compiled-in
// defaults, then an optional YAML file, then command-line flags.
type Config struct {
	Channel    uint8 // 1-16, or Omni
	SampleRate int
	BlockSize  int
	Polyphony  int
	QueueDepth int
	Output     OutputKind
	WAVPath    string
	Port       string // MIDI input name hint
	Serial     string // serial device; empty disables the DIN input
	Baud       int
	Banks      []string
	Debug      bool
}

func DefaultConfig() Config {
	return Config{
		Channel:    1,
		SampleRate: 24000,
		BlockSize:  256,
		Polyphony:  8,
		QueueDepth: 256,
		Output:     OutputAudio,
		Baud:       midiBaudRate,
	}
}

// LoadFile merges a YAML file into c. Keys not present keep their value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	for key, v := range raw {
		if err := c.set(key, v); err != nil {
			return fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) set(key string, v any) error {
	var err error
	switch key {
	case "channel":
		c.Channel, err = parseChannel(v)
	case "sample_rate":
		c.SampleRate, err = cast.ToIntE(v)
	case "block_size":
		c.BlockSize, err = cast.ToIntE(v)
	case "polyphony":
		c.Polyphony, err = cast.ToIntE(v)
	case "queue_depth":
		c.QueueDepth, err = cast.ToIntE(v)
	case "output":
		var s string
		s, err = cast.ToStringE(v)
		c.Output = OutputKind(strings.ToLower(s))
	case "wav":
		c.WAVPath, err = cast.ToStringE(v)
	case "port":
		c.Port, err = cast.ToStringE(v)
	case "serial":
		c.Serial, err = cast.ToStringE(v)
	case "baud":
		c.Baud, err = cast.ToIntE(v)
	case "banks":
		c.Banks, err = cast.ToStringSliceE(v)
	case "debug":
		c.Debug, err = cast.ToBoolE(v)
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// parseChannel accepts 1-16, 0 or "omni".
func parseChannel(v any) (uint8, error) {
	if s, ok := v.(string); ok && strings.EqualFold(strings.TrimSpace(s), "omni") {
		return Omni, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 16 {
		return 0, fmt.Errorf("channel %d out of range 1-16", n)
	}
	return uint8(n), nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Channel > 16 {
		errs = append(errs, fmt.Errorf("channel %d out of range 1-16", c.Channel))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block size must be positive, got %d", c.BlockSize))
	}
	if c.Polyphony <= 0 {
		errs = append(errs, fmt.Errorf("polyphony must be positive, got %d", c.Polyphony))
	}
	if c.QueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("queue depth must be positive, got %d", c.QueueDepth))
	}
	switch c.Output {
	case OutputAudio, OutputNone:
	case OutputWAV:
		if c.WAVPath == "" {
			errs = append(errs, errors.New("wav output needs a file (-wav)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output %q (audio, wav, none)", c.Output))
	}
	if c.Serial != "" && c.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud must be positive, got %d", c.Baud))
	}
	if len(c.Banks) > NumBanks {
		errs = append(errs, fmt.Errorf("%d bank files given, at most %d", len(c.Banks), NumBanks))
	}
	return errors.Join(errs...)
}

// loadConfig registers the shared flags on fs, parses args and applies, in
// order, the defaults, the -config file and the flags that were set.
func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()

	path := fs.String("config", "", "YAML config file")
	channel := fs.String("channel", "1", "MIDI receive channel 1-16, or omni")
	rate := fs.Int("rate", cfg.SampleRate, "sample rate in Hz")
	block := fs.Int("block", cfg.BlockSize, "render block size in frames")
	poly := fs.Int("polyphony", cfg.Polyphony, "number of voices")
	queue := fs.Int("queue", cfg.QueueDepth, "command queue depth")
	output := fs.String("output", string(cfg.Output), "audio output: audio, wav or none")
	wavPath := fs.String("wav", "", "WAV file for -output wav")
	port := fs.String("port", "", "MIDI input name fragment")
	serialDev := fs.String("serial", "", "serial device for DIN MIDI")
	baud := fs.Int("baud", cfg.Baud, "serial baud rate")
	banks := fs.String("banks", "", "comma-separated 32-voice .syx files, bank 0 first")
	debug := fs.Bool("debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		if err := cfg.LoadFile(*path); err != nil {
			return nil, err
		}
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "channel":
			ch, e := parseChannel(*channel)
			if e != nil {
				err = fmt.Errorf("-channel: %w", e)
			}
			cfg.Channel = ch
		case "rate":
			cfg.SampleRate = *rate
		case "block":
			cfg.BlockSize = *block
		case "polyphony":
			cfg.Polyphony = *poly
		case "queue":
			cfg.QueueDepth = *queue
		case "output":
			cfg.Output = OutputKind(strings.ToLower(*output))
		case "wav":
			cfg.WAVPath = *wavPath
		case "port":
			cfg.Port = *port
		case "serial":
			cfg.Serial = *serialDev
		case "baud":
			cfg.Baud = *baud
		case "banks":
			cfg.Banks = strings.Split(*banks, ",")
		case "debug":
			cfg.Debug = *debug
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
