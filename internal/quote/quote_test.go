package quote

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category string
		want     Record
	}{
		{
			name:     "trims input",
			text:     "  Stay hungry.  ",
			category: " life ",
			want:     Record{Text: "Stay hungry.", Category: "life"},
		},
		{
			name:     "empty category defaults",
			text:     "Stay hungry.",
			category: "   ",
			want:     Record{Text: "Stay hungry.", Category: DefaultCategory},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.text, tt.category)
			if got != tt.want {
				t.Errorf("New() = %+v, want %+v", got, tt.want)
			}
			if got.Synced() {
				t.Error("new record should be local-only")
			}
		})
	}
}

func TestRecord_Validate(t *testing.T) {
	if err := (Record{Text: "x", Category: "y"}).Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}
	if err := (Record{Category: "y"}).Validate(); err == nil {
		t.Error("expected error for empty text")
	}
	if err := (Record{Text: "x"}).Validate(); err == nil {
		t.Error("expected error for empty category")
	}
}

func TestCollection_Helpers(t *testing.T) {
	c := Collection{
		{Text: "A", Category: "life"},
		{Text: "B", Category: "work", RemoteID: "1"},
		{Text: "C", Category: "life"},
	}

	if got := c.Index("C"); got != 2 {
		t.Errorf("Index(C) = %d, want 2", got)
	}
	if c.Contains("a") {
		t.Error("text identity must be case-sensitive")
	}

	if diff := cmp.Diff([]string{"life", "work"}, c.Categories()); diff != "" {
		t.Errorf("Categories() mismatch (-want +got):\n%s", diff)
	}

	if got := len(c.Filter("life")); got != 2 {
		t.Errorf("Filter(life) returned %d records, want 2", got)
	}
	if got := len(c.Filter(AllCategories)); got != 3 {
		t.Errorf("Filter(all) returned %d records, want 3", got)
	}
	if got := len(c.Filter("missing")); got != 0 {
		t.Errorf("Filter(missing) returned %d records, want 0", got)
	}

	unsynced := c.Unsynced()
	if len(unsynced) != 2 || unsynced[0].Text != "A" || unsynced[1].Text != "C" {
		t.Errorf("Unsynced() = %+v", unsynced)
	}

	clone := c.Clone()
	clone[0].Category = "changed"
	if c[0].Category != "life" {
		t.Error("Clone() must not share backing storage")
	}
}

func TestSeed(t *testing.T) {
	seed := Seed()
	if len(seed) != 5 {
		t.Fatalf("expected 5 seed quotes, got %d", len(seed))
	}
	for _, r := range seed {
		if err := r.Validate(); err != nil {
			t.Errorf("seed record %q invalid: %v", r.Text, err)
		}
		if r.Synced() {
			t.Errorf("seed record %q should be local-only", r.Text)
		}
	}
}

func exportFixture() Collection {
	return Collection{
		{Text: "Start small, stay consistent.", Category: "motivation"},
		{Text: "sunt aut facere repellat provident occaecati", Category: "quia", RemoteID: "1"},
	}
}

func TestExport_Golden(t *testing.T) {
	g := goldie.New(t)

	var jsonBuf bytes.Buffer
	if err := Export(&jsonBuf, exportFixture(), FormatJSON); err != nil {
		t.Fatalf("Export(json) failed: %v", err)
	}
	g.Assert(t, "export_json", jsonBuf.Bytes())

	var yamlBuf bytes.Buffer
	if err := Export(&yamlBuf, exportFixture(), FormatYAML); err != nil {
		t.Fatalf("Export(yaml) failed: %v", err)
	}
	g.Assert(t, "export_yaml", yamlBuf.Bytes())
}

func TestParseImport(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  Format
		want    []Record
		wantErr bool
	}{
		{
			name:   "defaults missing category",
			data:   `[{"text":"A"},{"text":"B","category":"work"}]`,
			format: FormatJSON,
			want: []Record{
				{Text: "A", Category: DefaultCategory},
				{Text: "B", Category: "work"},
			},
		},
		{
			name:   "skips blank text and ignores remote ids",
			data:   `[{"text":""},{"text":"   "},null,{"text":"C","category":"x","remoteId":"9"}]`,
			format: FormatJSON,
			want:   []Record{{Text: "C", Category: "x"}},
		},
		{
			name:   "empty array",
			data:   `[]`,
			format: FormatJSON,
			want:   []Record{},
		},
		{
			name:    "object payload rejected",
			data:    `{"text":"A"}`,
			format:  FormatJSON,
			wantErr: true,
		},
		{
			name:    "malformed json rejected",
			data:    `[{"text":"A"},`,
			format:  FormatJSON,
			wantErr: true,
		},
		{
			name:    "wrong element type rejects whole payload",
			data:    `[{"text":"A"},42]`,
			format:  FormatJSON,
			wantErr: true,
		},
		{
			name:    "empty payload rejected",
			data:    ``,
			format:  FormatJSON,
			wantErr: true,
		},
		{
			name:   "yaml list",
			data:   "- text: A\n- text: B\n  category: work\n",
			format: FormatYAML,
			want: []Record{
				{Text: "A", Category: DefaultCategory},
				{Text: "B", Category: "work"},
			},
		},
		{
			name:    "yaml mapping rejected",
			data:    "text: A\n",
			format:  FormatYAML,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseImport([]byte(tt.data), tt.format)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidImport) {
					t.Fatalf("expected ErrInvalidImport, got %v", err)
				}
				if got != nil {
					t.Errorf("rejected payload must not yield records, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseImport() failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseImport() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			original := Seed()
			original = append(original, Record{Text: "remote", Category: "x", RemoteID: "3"})

			var buf bytes.Buffer
			if err := Export(&buf, original, format); err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			got, err := ParseImport(buf.Bytes(), format)
			if err != nil {
				t.Fatalf("ParseImport failed: %v", err)
			}

			type pair struct{ text, category string }
			want := make(map[pair]bool)
			for _, r := range original {
				want[pair{r.Text, r.Category}] = true
			}
			have := make(map[pair]bool)
			for _, r := range got {
				have[pair{r.Text, r.Category}] = true
			}
			if diff := cmp.Diff(want, have, cmp.AllowUnexported(pair{})); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if FormatFromPath("quotes.YML") != FormatYAML || FormatFromPath("quotes.json") != FormatJSON {
		t.Error("FormatFromPath picked the wrong format")
	}
}
