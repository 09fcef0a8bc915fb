package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/quote"
)

func TestInit_NonTerminalIsPlain(t *testing.T) {
	Init(&bytes.Buffer{})
	if got := RenderFail("boom"); got != "boom" {
		t.Errorf("expected plain output for non-terminal writer, got %q", got)
	}
}

func TestRenderQuote(t *testing.T) {
	DisableColor()

	local := RenderQuote(quote.Record{Text: "Stay curious.", Category: "life"})
	if !strings.Contains(local, "“Stay curious.”") || !strings.Contains(local, "life · local") {
		t.Errorf("unexpected local rendering: %q", local)
	}

	synced := RenderQuote(quote.Record{Text: "x", Category: "quia", RemoteID: "7"})
	if !strings.Contains(synced, "synced #7") {
		t.Errorf("unexpected synced rendering: %q", synced)
	}
}

func TestRenderStatus(t *testing.T) {
	DisableColor()

	tests := []struct {
		kind   engine.StatusKind
		prefix string
	}{
		{engine.StatusSynced, "✓ "},
		{engine.StatusAlreadyUpToDate, "✓ "},
		{engine.StatusOffline, "⚠ "},
		{engine.StatusNoData, "⚠ "},
		{engine.StatusError, "✗ "},
		{engine.StatusSyncing, ""},
	}
	for _, tt := range tests {
		got := RenderStatus(engine.Status{Kind: tt.kind, Message: tt.kind.Message()})
		if want := tt.prefix + tt.kind.Message(); got != want {
			t.Errorf("RenderStatus(%s) = %q, want %q", tt.kind, got, want)
		}
	}
}

func TestRenderCategories(t *testing.T) {
	DisableColor()
	if got := RenderCategories([]string{"a", "b"}, "b"); got != "a, b" {
		t.Errorf("RenderCategories = %q", got)
	}
}
