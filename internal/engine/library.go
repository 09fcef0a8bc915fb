package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/quote"
	"github.com/Mschirtzinger/quotesync/internal/store"
)

// ImportResult reports what an import applied.
type ImportResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Collection returns a copy of the current collection.
func (e *Engine) Collection(ctx context.Context) (quote.Collection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return e.collection.Clone(), nil
}

// Categories returns the sorted distinct categories.
func (e *Engine) Categories(ctx context.Context) ([]string, error) {
	c, err := e.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return c.Categories(), nil
}

// Add appends a local-only quote and persists the collection.
func (e *Engine) Add(ctx context.Context, text, category string) (quote.Record, error) {
	r := quote.New(text, category)
	if r.Text == "" {
		return quote.Record{}, ErrEmptyText
	}

	e.mu.Lock()
	if err := e.ensureLoaded(ctx); err != nil {
		e.mu.Unlock()
		return quote.Record{}, err
	}
	if e.collection.Contains(r.Text) {
		e.mu.Unlock()
		return quote.Record{}, fmt.Errorf("%w: %q", ErrDuplicate, r.Text)
	}

	next := append(e.collection.Clone(), r)
	if err := e.store.Save(ctx, next); err != nil {
		e.mu.Unlock()
		return quote.Record{}, fmt.Errorf("failed to persist new quote: %w", err)
	}
	e.collection = next
	cats := next.Categories()
	e.mu.Unlock()

	e.logger.Info("quote added", zap.String("category", r.Category))
	e.notify.categories(cats)
	return r, nil
}

// Import adds every record of the payload whose text is not already present.
// A payload that fails to parse is rejected as a whole.
func (e *Engine) Import(ctx context.Context, data []byte, format quote.Format) (ImportResult, error) {
	records, err := quote.ParseImport(data, format)
	if err != nil {
		return ImportResult{}, err
	}

	e.mu.Lock()
	if err := e.ensureLoaded(ctx); err != nil {
		e.mu.Unlock()
		return ImportResult{}, err
	}

	var res ImportResult
	next := e.collection.Clone()
	for _, r := range records {
		if next.Contains(r.Text) {
			res.Skipped++
			continue
		}
		next = append(next, r)
		res.Added++
	}

	if res.Added == 0 {
		e.mu.Unlock()
		return res, nil
	}

	if err := e.store.Save(ctx, next); err != nil {
		e.mu.Unlock()
		return ImportResult{}, fmt.Errorf("failed to persist import: %w", err)
	}
	e.collection = next
	cats := next.Categories()
	e.mu.Unlock()

	e.logger.Info("quotes imported", zap.Int("added", res.Added), zap.Int("skipped", res.Skipped))
	e.notify.categories(cats)
	return res, nil
}

// Export writes the collection in the given format.
func (e *Engine) Export(ctx context.Context, w io.Writer, format quote.Format) error {
	c, err := e.Collection(ctx)
	if err != nil {
		return err
	}
	return quote.Export(w, c, format)
}

// Random picks a quote uniformly from category (quote.AllCategories for any)
// and remembers it as the last viewed quote.
func (e *Engine) Random(ctx context.Context, category string) (quote.Record, error) {
	c, err := e.Collection(ctx)
	if err != nil {
		return quote.Record{}, err
	}

	candidates := c.Filter(category)
	if len(candidates) == 0 {
		return quote.Record{}, ErrNoQuotes
	}
	r := candidates[rand.IntN(len(candidates))]

	data, err := json.Marshal(r)
	if err == nil {
		err = e.store.SavePreference(ctx, store.KeyLastViewedQuote, string(data))
	}
	if err != nil {
		e.logger.Warn("failed to remember last viewed quote", zap.Error(err))
	}
	return r, nil
}

// LastViewed returns the most recently displayed quote, if any.
func (e *Engine) LastViewed(ctx context.Context) (quote.Record, bool, error) {
	raw, ok, err := e.store.LoadPreference(ctx, store.KeyLastViewedQuote)
	if err != nil || !ok {
		return quote.Record{}, false, err
	}
	var r quote.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil || r.Text == "" {
		// An unreadable snapshot is only a display hint.
		return quote.Record{}, false, nil
	}
	return r, true, nil
}

// SelectedCategory returns the remembered category filter, quote.AllCategories
// by default.
func (e *Engine) SelectedCategory(ctx context.Context) (string, error) {
	v, ok, err := e.store.LoadPreference(ctx, store.KeySelectedCategory)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return quote.AllCategories, nil
	}
	return v, nil
}

// SelectCategory remembers the category filter.
func (e *Engine) SelectCategory(ctx context.Context, category string) error {
	if category == "" {
		category = quote.AllCategories
	}
	return e.store.SavePreference(ctx, store.KeySelectedCategory, category)
}
