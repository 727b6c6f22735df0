package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
)

// runVoice handles "voice get" (print a catalog voice as JSON) and
// "voice sysex" (turn JSON from stdin into a single voice dump).
func runVoice(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("voice needs a subcommand: get or sysex")
	}
	switch args[0] {
	case "get":
		return getVoice(args[1:])
	case "sysex":
		return voiceToSysEx(args[1:])
	}
	return fmt.Errorf("unknown voice subcommand %q", args[0])
}

func getVoice(args []string) error {
	fs := flag.NewFlagSet("voice get", flag.ExitOnError)
	bank := fs.Int("bank", 0, "bank number (0-7)")
	program := fs.Int("program", 0, "voice number within the bank (0-31)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	initLogger(cfg.Debug)

	voices, err := loadVoices(cfg)
	if err != nil {
		return err
	}
	asJSON, err := voiceJSON(voices, *bank, *program)
	if err != nil {
		return err
	}
	fmt.Println(string(asJSON))
	return nil
}

func voiceJSON(voices *Catalog, bank, program int) ([]byte, error) {
	rec, ok := voices.Voice(bank, program)
	if !ok {
		return nil, fmt.Errorf("no voice at bank %d program %d", bank, program)
	}
	asJSON, err := json.MarshalIndent(ParseVoice(DecodeRecord(rec)), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal voice to JSON: %w", err)
	}
	return asJSON, nil
}

func voiceToSysEx(args []string) error {
	fs := flag.NewFlagSet("voice sysex", flag.ExitOnError)
	out := fs.String("out", "", "file to write; stdout when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asJSON, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read voice JSON from stdin: %w", err)
	}
	syx, err := voiceSysExFromJSON(asJSON)
	if err != nil {
		return err
	}

	if *out == "" {
		_, err = os.Stdout.Write(syx)
		return err
	}
	if err := os.WriteFile(*out, syx, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	logger.Info("voice: sysex written", "path", *out, "bytes", len(syx))
	return nil
}

func voiceSysExFromJSON(asJSON []byte) ([]byte, error) {
	var v Voice
	if err := json.Unmarshal(asJSON, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal voice JSON: %w", err)
	}
	p, err := v.Params()
	if err != nil {
		return nil, err
	}
	return VoiceSysEx(p), nil
}
