// Package quote defines the record and collection types that the sync engine
// keeps consistent between local storage and the remote collection.
package quote

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultCategory is applied when a record is created or imported without one.
	DefaultCategory = "general"

	// AllCategories is the filter value that selects every record.
	AllCategories = "all"
)

// Record is one quote. Text is the identity key: two records with equal Text
// (exact, case-sensitive) are the same logical entity.
//
// RemoteID is set once the remote source knows the record. A record without
// a RemoteID is local-only and pending push.
type Record struct {
	Text     string `json:"text" yaml:"text"`
	Category string `json:"category" yaml:"category"`
	RemoteID string `json:"remoteId,omitempty" yaml:"remoteId,omitempty"`
}

// New builds a local-only record, trimming input and defaulting the category.
func New(text, category string) Record {
	r := Record{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}
	return r.Normalize()
}

// Normalize returns a copy with an empty category replaced by DefaultCategory.
func (r Record) Normalize() Record {
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	return r
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("text is required")
	}
	if r.Category == "" {
		return fmt.Errorf("category is required")
	}
	return nil
}

// Synced reports whether the remote source knows this record.
func (r Record) Synced() bool {
	return r.RemoteID != ""
}

// Collection is an ordered sequence of records. Order is preserved but
// carries no meaning.
type Collection []Record

// Index returns the position of the record with the given text, or -1.
func (c Collection) Index(text string) int {
	for i, r := range c {
		if r.Text == text {
			return i
		}
	}
	return -1
}

// Contains reports whether a record with the given text exists.
func (c Collection) Contains(text string) bool {
	return c.Index(text) >= 0
}

// Clone returns an independent copy.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Categories returns the sorted set of distinct categories.
func (c Collection) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, r := range c {
		if !seen[r.Category] {
			seen[r.Category] = true
			cats = append(cats, r.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// Filter returns the records in category, or every record for AllCategories
// and the empty string.
func (c Collection) Filter(category string) Collection {
	if category == "" || category == AllCategories {
		return c.Clone()
	}
	var out Collection
	for _, r := range c {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

// Unsynced returns the local-only records in collection order.
func (c Collection) Unsynced() []Record {
	var out []Record
	for _, r := range c {
		if !r.Synced() {
			out = append(out, r)
		}
	}
	return out
}

// Seed returns the built-in collection used when nothing has been persisted.
func Seed() Collection {
	return Collection{
		{Text: "The only way to do great work is to love what you do.", Category: "motivational"},
		{Text: "Life is what happens when you're busy making other plans.", Category: "life"},
		{Text: "Success doesn’t arrive — you build it, brick by brick.", Category: "success"},
		{Text: "We have the boldness to speak up", Category: "courage"},
		{Text: "Start small, stay consistent.", Category: "motivation"},
	}
}
