package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Mschirtzinger/quotesync/internal/quote"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name        string
		local       quote.Collection
		remote      []quote.Record
		want        quote.Collection
		wantChanged bool
	}{
		{
			name:        "server wins on synced record",
			local:       quote.Collection{{Text: "A", Category: "x", RemoteID: "1"}},
			remote:      []quote.Record{{Text: "A", Category: "y", RemoteID: "1"}},
			want:        quote.Collection{{Text: "A", Category: "y", RemoteID: "1"}},
			wantChanged: true,
		},
		{
			name:        "local-only record is protected",
			local:       quote.Collection{{Text: "A", Category: "x"}},
			remote:      []quote.Record{{Text: "A", Category: "y", RemoteID: "1"}},
			want:        quote.Collection{{Text: "A", Category: "x"}},
			wantChanged: false,
		},
		{
			name:  "unmatched remote records are appended in order",
			local: quote.Collection{{Text: "L", Category: "l"}},
			remote: []quote.Record{
				{Text: "R2", Category: "b", RemoteID: "2"},
				{Text: "R1", Category: "a", RemoteID: "1"},
			},
			want: quote.Collection{
				{Text: "L", Category: "l"},
				{Text: "R2", Category: "b", RemoteID: "2"},
				{Text: "R1", Category: "a", RemoteID: "1"},
			},
			wantChanged: true,
		},
		{
			name: "replacement keeps position and untouched order",
			local: quote.Collection{
				{Text: "first", Category: "a"},
				{Text: "synced", Category: "old", RemoteID: "5"},
				{Text: "last", Category: "c"},
			},
			remote: []quote.Record{{Text: "synced", Category: "new", RemoteID: "5"}},
			want: quote.Collection{
				{Text: "first", Category: "a"},
				{Text: "synced", Category: "new", RemoteID: "5"},
				{Text: "last", Category: "c"},
			},
			wantChanged: true,
		},
		{
			name:        "identical synced record is not a change",
			local:       quote.Collection{{Text: "A", Category: "x", RemoteID: "1"}},
			remote:      []quote.Record{{Text: "A", Category: "x", RemoteID: "1"}},
			want:        quote.Collection{{Text: "A", Category: "x", RemoteID: "1"}},
			wantChanged: false,
		},
		{
			name:        "text match is case-sensitive",
			local:       quote.Collection{{Text: "a", Category: "x"}},
			remote:      []quote.Record{{Text: "A", Category: "y", RemoteID: "1"}},
			want:        quote.Collection{{Text: "a", Category: "x"}, {Text: "A", Category: "y", RemoteID: "1"}},
			wantChanged: true,
		},
		{
			name:        "empty remote",
			local:       quote.Collection{{Text: "A", Category: "x"}},
			remote:      nil,
			want:        quote.Collection{{Text: "A", Category: "x"}},
			wantChanged: false,
		},
		{
			name:        "empty local",
			local:       nil,
			remote:      []quote.Record{{Text: "A", Category: "x", RemoteID: "1"}},
			want:        quote.Collection{{Text: "A", Category: "x", RemoteID: "1"}},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Merge(tt.local, tt.remote)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
			if changed != tt.wantChanged {
				t.Errorf("Merge() changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	seed := quote.Seed()
	tests := []struct {
		name   string
		local  quote.Collection
		remote []quote.Record
	}{
		{
			name:  "seed with new and matching items",
			local: seed,
			remote: []quote.Record{
				{Text: "sunt aut facere", Category: "quia", RemoteID: "1"},
				{Text: "qui est esse", Category: "est", RemoteID: "2"},
				{Text: seed[0].Text, Category: "other", RemoteID: "3"},
			},
		},
		{
			name:  "repeated text in one snapshot",
			local: nil,
			remote: []quote.Record{
				{Text: "A", Category: "x", RemoteID: "1"},
				{Text: "A", Category: "y", RemoteID: "2"},
			},
		},
		{
			name:  "repeated text matching a synced record",
			local: quote.Collection{{Text: "A", Category: "x", RemoteID: "1"}},
			remote: []quote.Record{
				{Text: "A", Category: "x", RemoteID: "1"},
				{Text: "A", Category: "y", RemoteID: "2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, changed := Merge(tt.local, tt.remote)
			if !changed {
				t.Fatal("first merge should change the collection")
			}

			second, changed := Merge(first, tt.remote)
			if changed {
				t.Error("second merge with the same snapshot should report no change")
			}
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("second merge altered the collection (-first +second):\n%s", diff)
			}
		})
	}
}

func TestMergeStats_RepeatedText(t *testing.T) {
	remote := []quote.Record{
		{Text: "A", Category: "x", RemoteID: "1"},
		{Text: "A", Category: "y", RemoteID: "2"},
	}

	merged, stats := MergeStats(nil, remote)
	want := quote.Collection{{Text: "A", Category: "y", RemoteID: "2"}}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merged mismatch (-want +got):\n%s", diff)
	}
	if stats != (Stats{Appended: 1}) {
		t.Errorf("MergeStats() = %+v, want one append", stats)
	}

	_, stats = MergeStats(merged, remote)
	if stats != (Stats{Unchanged: 1}) {
		t.Errorf("second MergeStats() = %+v, want one unchanged", stats)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	local := quote.Collection{{Text: "A", Category: "x", RemoteID: "1"}}
	remote := []quote.Record{
		{Text: "A", Category: "y", RemoteID: "1"},
		{Text: "B", Category: "z", RemoteID: "2"},
	}
	localBefore := local.Clone()

	_, _ = Merge(local, remote)

	if diff := cmp.Diff(localBefore, local); diff != "" {
		t.Errorf("Merge mutated local input (-before +after):\n%s", diff)
	}
}

func TestMergeStats(t *testing.T) {
	local := quote.Collection{
		{Text: "protected", Category: "x"},
		{Text: "synced", Category: "x", RemoteID: "1"},
		{Text: "same", Category: "x", RemoteID: "2"},
	}
	remote := []quote.Record{
		{Text: "protected", Category: "y", RemoteID: "9"},
		{Text: "synced", Category: "y", RemoteID: "1"},
		{Text: "same", Category: "x", RemoteID: "2"},
		{Text: "new", Category: "y", RemoteID: "3"},
	}

	_, stats := MergeStats(local, remote)
	want := Stats{Appended: 1, Replaced: 1, Protected: 1, Unchanged: 1}
	if stats != want {
		t.Errorf("MergeStats() = %+v, want %+v", stats, want)
	}
	if !stats.Changed() {
		t.Error("expected Changed() to be true")
	}
}
