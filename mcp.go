package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	_ "embed"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const maxNoteDuration = 10 * time.Second

// newMCPServer exposes the instrument as MCP tools. Every tool that changes
// sound goes through the command queue, so the dispatcher remains the only
// writer of engine state.
func newMCPServer(catalog *Catalog, notes *noteSender) *server.MCPServer {
	s := server.NewMCPServer(
		"fmcore",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	docTool := mcp.NewTool("fmcore_describe-midi",
		mcp.WithDescription("Returns the MIDI implementation chart: control changes, SysEx formats and status codes."),
	)
	s.AddTool(docTool, docToolHandler)

	listTool := mcp.NewTool("fmcore_list-voices",
		mcp.WithDescription("Lists the 32 voice names of a bank."),
		mcp.WithNumber("bank", mcp.Required(), mcp.Description("Bank number (0-7).")),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		bank, err := request.RequireInt("bank")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		logger.Info("mcp: list voices", "bank", bank)

		names := catalog.Names(bank)
		if names == nil {
			return mcp.NewToolResultError(fmt.Sprintf("bank must be 0-%d, got %d", NumBanks-1, bank)), nil
		}
		asJSON, err := json.MarshalIndent(names, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal voice names: %w", err)
		}
		return mcp.NewToolResultText(string(asJSON)), nil
	})

	getVoiceTool := mcp.NewTool("fmcore_get-voice",
		mcp.WithDescription("Returns a catalog voice as JSON (operators, pitch EG, LFO, algorithm, name)."),
		mcp.WithNumber("bank", mcp.Required(), mcp.Description("Bank number (0-7).")),
		mcp.WithNumber("program", mcp.Required(), mcp.Description("Voice number within the bank (0-31).")),
	)
	s.AddTool(getVoiceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		bank, err := request.RequireInt("bank")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		program, err := request.RequireInt("program")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		logger.Info("mcp: get voice", "bank", bank, "program", program)

		asJSON, err := voiceJSON(catalog, bank, program)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(asJSON)), nil
	})

	sendVoiceTool := mcp.NewTool("fmcore_send-voice",
		mcp.WithDescription("Loads a voice into the instrument as a single voice SysEx dump. The catalog is not changed."),
		mcp.WithString("voice-json", mcp.Required(), mcp.Description("The voice in the JSON form returned by fmcore_get-voice.")),
	)
	s.AddTool(sendVoiceTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		asJSON, err := request.RequireString("voice-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		syx, err := voiceSysExFromJSON([]byte(asJSON))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		logger.Info("mcp: send voice", "bytes", len(syx))

		if err := notes.SysEx(syx); err != nil {
			return nil, fmt.Errorf("failed to send voice: %w", err)
		}
		return mcp.NewToolResultText("Voice sent."), nil
	})

	selectTool := mcp.NewTool("fmcore_select-voice",
		mcp.WithDescription("Selects a voice with bank select (CC32) followed by a program change."),
		mcp.WithNumber("bank", mcp.Required(), mcp.Description("Bank number (0-7).")),
		mcp.WithNumber("program", mcp.Required(), mcp.Description("Program number (0-127). Programs above 31 reach the following banks.")),
	)
	s.AddTool(selectTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		bank, err := request.RequireInt("bank")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		program, err := request.RequireInt("program")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if bank < 0 || bank >= NumBanks || program < 0 || program > 127 {
			return mcp.NewToolResultError(fmt.Sprintf("bank 0-%d and program 0-127 required", NumBanks-1)), nil
		}
		logger.Info("mcp: select voice", "bank", bank, "program", program)

		if err := notes.ProgramChange(uint8(bank), uint8(program)); err != nil {
			return nil, fmt.Errorf("failed to select voice: %w", err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Voice bank %d program %d requested.", bank, program)), nil
	})

	ccTool := mcp.NewTool("fmcore_control-change",
		mcp.WithDescription("Sends a control change to the instrument (1 mod wheel, 7 volume, 64 sustain, 120 panic, ...)."),
		mcp.WithNumber("controller", mcp.Required(), mcp.Description("Controller number (0-127).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Controller value (0-127).")),
	)
	s.AddTool(ccTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cc, err := request.RequireInt("controller")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := request.RequireInt("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if cc < 0 || cc > 127 || value < 0 || value > 127 {
			return mcp.NewToolResultError("controller and value must be 0-127"), nil
		}
		logger.Info("mcp: control change", "cc", cc, "value", value)

		if err := notes.ControlChange(uint8(cc), uint8(value)); err != nil {
			return nil, fmt.Errorf("failed to send control change: %w", err)
		}
		return mcp.NewToolResultText("Control change sent."), nil
	})

	noteTool := mcp.NewTool("fmcore_play-note",
		mcp.WithDescription("Plays one note and releases it after the given duration."),
		mcp.WithString("note", mcp.Required(), mcp.Description("Note name (C4, F#3, Bb2) or MIDI number.")),
		mcp.WithNumber("velocity", mcp.Description("Velocity 1-127, default 100.")),
		mcp.WithNumber("duration_ms", mcp.Description("Hold time in milliseconds, default 500.")),
	)
	s.AddTool(noteTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tok, err := request.RequireString("note")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		note, isRest, err := parseNoteToken(tok)
		if err != nil || isRest {
			return mcp.NewToolResultError(fmt.Sprintf("invalid note %q", tok)), nil
		}
		velocity, d, errResult := noteArgs(request)
		if errResult != nil {
			return errResult, nil
		}
		logger.Info("mcp: play note", "note", note, "velocity", velocity, "duration", d)

		if err := notes.Note(ctx, note, velocity, d); err != nil {
			return nil, fmt.Errorf("failed to play note: %w", err)
		}
		return mcp.NewToolResultText("Note played."), nil
	})

	phraseTool := mcp.NewTool("fmcore_play-notes",
		mcp.WithDescription("Plays a sequence of notes one after another, e.g. \"C4 E4 G4 r C5\"."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Notes separated by spaces or commas; r is a rest.")),
		mcp.WithNumber("velocity", mcp.Description("Velocity 1-127, default 100.")),
		mcp.WithNumber("duration_ms", mcp.Description("Length of each note in milliseconds, default 500.")),
	)
	s.AddTool(phraseTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("notes")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		velocity, d, errResult := noteArgs(request)
		if errResult != nil {
			return errResult, nil
		}
		logger.Info("mcp: play notes", "notes", text)

		if err := notes.Notes(ctx, text, velocity, d); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Notes played."), nil
	})

	panicTool := mcp.NewTool("fmcore_panic",
		mcp.WithDescription("Silences every voice immediately (all sound off)."),
	)
	s.AddTool(panicTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger.Info("mcp: panic")
		if err := notes.ControlChange(ccAllSoundOff, 0); err != nil {
			return nil, fmt.Errorf("failed to send panic: %w", err)
		}
		return mcp.NewToolResultText("All sound off."), nil
	})

	return s
}

//go:embed midi_implementation.txt
var midiImplementation string

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Info("mcp: describe midi")
	return mcp.NewToolResultText(midiImplementation), nil
}

func noteArgs(request mcp.CallToolRequest) (uint8, time.Duration, *mcp.CallToolResult) {
	velocity := request.GetInt("velocity", 100)
	if velocity < 1 || velocity > 127 {
		return 0, 0, mcp.NewToolResultError("velocity must be 1-127")
	}
	d := time.Duration(request.GetInt("duration_ms", 500)) * time.Millisecond
	if d <= 0 || d > maxNoteDuration {
		return 0, 0, mcp.NewToolResultError(fmt.Sprintf("duration_ms must be 1-%d", maxNoteDuration.Milliseconds()))
	}
	return uint8(velocity), d, nil
}
