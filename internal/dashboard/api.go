package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/quote"
)

// maxImportBytes bounds POST /import and POST /quotes bodies.
const maxImportBytes = 4 << 20

// Engine is the subset of *engine.Engine the API serves.
type Engine interface {
	Collection(ctx context.Context) (quote.Collection, error)
	Categories(ctx context.Context) ([]string, error)
	Add(ctx context.Context, text, category string) (quote.Record, error)
	Import(ctx context.Context, data []byte, format quote.Format) (engine.ImportResult, error)
	Export(ctx context.Context, w io.Writer, format quote.Format) error
	Random(ctx context.Context, category string) (quote.Record, error)
	State() engine.State
	LastResult() engine.Result
}

// Trigger requests an out-of-band sync cycle. *scheduler.Scheduler
// satisfies it.
type Trigger interface {
	Trigger() bool
}

// StatusData is the body of GET /status.
type StatusData struct {
	State      string         `json:"state"`
	Quotes     int            `json:"quotes"`
	Unsynced   int            `json:"unsynced"`
	LastResult *engine.Result `json:"last_result,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	Clients    int            `json:"clients"`
}

type addRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /quotes/random", s.handleRandom)
	mux.HandleFunc("POST /quotes", s.handleAdd)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /import", s.handleImport)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	c, err := s.api.Collection(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	body := StatusData{
		State:    s.api.State().String(),
		Quotes:   len(c),
		Unsynced: len(c.Unsynced()),
		Clients:  s.ClientCount(),
	}
	if last := s.api.LastResult(); last.CycleID != "" {
		body.LastResult = &last
		if last.Err != nil {
			body.LastError = last.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "scheduler not running"})
		return
	}
	queued := s.trigger.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.api.Categories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = quote.AllCategories
	}
	rec, err := s.api.Random(r.Context(), category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxImportBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	rec, err := s.api.Add(r.Context(), req.Text, req.Category)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if msg, err := NewMessage(MessageTypeQuoteAdded, rec); err == nil {
		s.Broadcast(msg)
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := quote.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := s.api.Export(r.Context(), &buf, format); err != nil {
		s.writeError(w, err)
		return
	}

	filename := "quotes.json"
	contentType := "application/json"
	if format == quote.FormatYAML {
		filename = "quotes.yaml"
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	format := quote.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := quote.ParseFormat(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		format = f
	} else if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/yaml" || mt == "application/x-yaml" {
		format = quote.FormatYAML
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("failed to read body: %v", err)})
		return
	}

	res, err := s.api.Import(r.Context(), data, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if msg, err := NewMessage(MessageTypeImport, res); err == nil {
		s.Broadcast(msg)
	}
	writeJSON(w, http.StatusOK, res)
}

// writeError maps engine errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrEmptyText), errors.Is(err, quote.ErrInvalidImport):
		code = http.StatusBadRequest
	case errors.Is(err, engine.ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(err, engine.ErrNoQuotes):
		code = http.StatusNotFound
	default:
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
