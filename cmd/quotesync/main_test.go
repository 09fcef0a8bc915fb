package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	groups := map[string]bool{}
	for _, g := range rootCmd.Groups() {
		groups[g.ID] = true
	}

	want := map[string]string{
		"sync":       "sync",
		"status":     "sync",
		"daemon":     "sync",
		"add":        "quotes",
		"random":     "quotes",
		"categories": "quotes",
		"export":     "quotes",
		"import":     "quotes",
	}
	for name, group := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
			continue
		}
		if cmd.GroupID != group || !groups[group] {
			t.Errorf("command %q group = %q, want %q", name, cmd.GroupID, group)
		}
	}
}

func TestImportExport_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	in := filepath.Join(dir, "in.yaml")
	if err := os.WriteFile(in, []byte("- text: Carried over\n  category: travel\n"), 0644); err != nil {
		t.Fatalf("failed to write import file: %v", err)
	}
	out := filepath.Join(dir, "out.json")

	for _, args := range [][]string{
		{"--data-dir", filepath.Join(dir, "data"), "--no-color", "import", in},
		{"--data-dir", filepath.Join(dir, "data"), "--no-color", "export", "-o", out},
	} {
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("quotesync %s failed: %v", strings.Join(args, " "), err)
		}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.Contains(string(data), `"text": "Carried over"`) {
		t.Errorf("export missing imported quote:\n%s", data)
	}
	if !strings.Contains(string(data), `"category": "motivational"`) {
		t.Errorf("export missing seed quotes:\n%s", data)
	}
}
