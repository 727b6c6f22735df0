package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"gitlab.com/gomidi/midi/v2"
)

func callTool(t *testing.T, events chan midi.Message, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := newMCPServer(NewCatalog(), newNoteSender(events, 1))
	tool := s.GetTool(name)
	if tool == nil {
		t.Fatalf("tool %s not registered", name)
	}
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content items=%d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type=%T", res.Content[0])
	}
	return text.Text
}

func TestMCPListVoices(t *testing.T) {
	res := callTool(t, nil, "fmcore_list-voices", map[string]any{"bank": float64(2)})
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}
	var names []string
	if err := json.Unmarshal([]byte(resultText(t, res)), &names); err != nil {
		t.Fatal(err)
	}
	if len(names) != VoicesPerBank || names[0] != "BRASS   1" {
		t.Fatalf("names=%v", names)
	}

	if res := callTool(t, nil, "fmcore_list-voices", map[string]any{"bank": float64(9)}); !res.IsError {
		t.Fatalf("bank 9 accepted")
	}
	if res := callTool(t, nil, "fmcore_list-voices", map[string]any{}); !res.IsError {
		t.Fatalf("missing bank accepted")
	}
}

func TestMCPSelectVoice(t *testing.T) {
	events := make(chan midi.Message, 4)
	res := callTool(t, events, "fmcore_select-voice", map[string]any{"bank": float64(1), "program": float64(40)})
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}
	if len(events) != 2 {
		t.Fatalf("queued=%d want=2", len(events))
	}

	d, f := newTestDispatcher(1)
	for len(events) > 0 {
		d.Dispatch(<-events)
	}
	if got := d.catalog.Selection(); got != (Selection{Bank: 1, Voice: 8}) {
		t.Fatalf("selection=%+v", got)
	}
	if len(f.loaded) != 1 {
		t.Fatalf("loaded=%d", len(f.loaded))
	}

	if res := callTool(t, events, "fmcore_select-voice", map[string]any{"bank": float64(8), "program": float64(0)}); !res.IsError {
		t.Fatalf("bank 8 accepted")
	}
}

func TestMCPSendVoice(t *testing.T) {
	asJSON, err := json.Marshal(ParseVoice(defaultVoice))
	if err != nil {
		t.Fatal(err)
	}
	events := make(chan midi.Message, 1)
	res := callTool(t, events, "fmcore_send-voice", map[string]any{"voice-json": string(asJSON)})
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}
	msg := <-events
	if len(msg) != VoiceRecordSize+2 || msg[0] != 0xF0 || msg[len(msg)-1] != 0xF7 {
		t.Fatalf("queued %d bytes", len(msg))
	}

	if res := callTool(t, events, "fmcore_send-voice", map[string]any{"voice-json": "not json"}); !res.IsError {
		t.Fatalf("invalid JSON accepted")
	}
}

func TestMCPControlChangeAndPanic(t *testing.T) {
	events := make(chan midi.Message, 2)
	if res := callTool(t, events, "fmcore_control-change", map[string]any{"controller": float64(7), "value": float64(200)}); !res.IsError {
		t.Fatalf("value 200 accepted")
	}
	if res := callTool(t, events, "fmcore_panic", nil); res.IsError {
		t.Fatalf("panic failed: %s", resultText(t, res))
	}
	var ch, cc, val uint8
	if !(<-events).GetControlChange(&ch, &cc, &val) || cc != ccAllSoundOff {
		t.Fatalf("queued cc=%d", cc)
	}
}

func TestMCPPlayNoteArguments(t *testing.T) {
	events := make(chan midi.Message, 2)
	for _, args := range []map[string]any{
		{"note": "H4"},
		{"note": "r"},
		{"note": "C4", "velocity": float64(0)},
		{"note": "C4", "duration_ms": float64(60_000)},
	} {
		res := callTool(t, events, "fmcore_play-note", args)
		if !res.IsError {
			t.Fatalf("%v accepted", args)
		}
		if !strings.Contains(strings.ToLower(resultText(t, res)), "note") &&
			!strings.Contains(resultText(t, res), "velocity") &&
			!strings.Contains(resultText(t, res), "duration") {
			t.Fatalf("%v: message %q", args, resultText(t, res))
		}
	}
	if len(events) != 0 {
		t.Fatalf("rejected calls queued %d messages", len(events))
	}

	res := callTool(t, events, "fmcore_play-note", map[string]any{"note": "A4", "duration_ms": float64(1)})
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}
	if len(events) != 2 {
		t.Fatalf("queued=%d want=2", len(events))
	}
}

func TestMCPDescribeMIDI(t *testing.T) {
	res := callTool(t, nil, "fmcore_describe-midi", nil)
	if res.IsError {
		t.Fatalf("error result")
	}
	chart := resultText(t, res)

	// every controller the dispatcher acts on has a row in the chart
	d, _ := newTestDispatcher(Omni)
	for cc := 0; cc < 128; cc++ {
		if !d.ControlChange(uint8(cc), 1) {
			continue
		}
		if !strings.Contains(chart, fmt.Sprintf("\n  %3d ", cc)) {
			t.Fatalf("chart has no row for CC %d", cc)
		}
	}
	for _, status := range []string{"100", "200", "-10"} {
		if !strings.Contains(chart, status) {
			t.Fatalf("chart misses status %s", status)
		}
	}
}
