package httpserver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"pastrami/internal/textstore"
)

// Body overhead allowed on top of the text itself for JSON framing.
const bodySlack = 4096

type textPayload struct {
	Text string `json:"text"`
}

type textResponse struct {
	TextID string `json:"text_id"`
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.texts.MaxLength())+bodySlack)

	var payload textPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "text exceeds maximum length")
			return
		}
		s.writeError(w, http.StatusBadRequest, "request body must be JSON with a \"text\" field")
		return
	}
	if payload.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}

	id, err := s.texts.Store(r.Context(), payload.Text)
	if err != nil {
		switch {
		case errors.Is(err, textstore.ErrTooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("text exceeds %d byte limit", s.texts.MaxLength()))
		case errors.Is(err, textstore.ErrAllocatorExhausted):
			s.writeError(w, http.StatusServiceUnavailable, "temporarily unable to store text")
		default:
			s.serverError(w, err)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, textResponse{
		TextID: id,
		Text:   payload.Text,
		URL:    s.canonicalURL(r, id),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "textID")
	text, ok := s.fetchText(w, r, id)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, textResponse{
		TextID: id,
		Text:   text,
		URL:    s.canonicalURL(r, id),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", "AuthKey")
		s.writeError(w, http.StatusUnauthorized, "missing or invalid AuthKey")
		return
	}

	id := chi.URLParam(r, "textID")
	if err := s.texts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, textstore.ErrInvalidID) {
			s.writeError(w, http.StatusBadRequest, "malformed text id")
			return
		}
		s.serverError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("text %q deleted", id)})
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	text, ok := s.fetchText(w, r, chi.URLParam(r, "textID"))
	if !ok {
		return
	}

	etag := etagFor(text)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("ETag", etag)
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "textID")
	if _, ok := s.fetchText(w, r, id); !ok {
		return
	}

	png, err := qrcode.Encode(s.canonicalURL(r, id), qrcode.Medium, 256)
	if err != nil {
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "pastrami: encrypted pastebin\n\n"+
		"POST /api/2.0/           {\"text\": \"...\"}  store a text\n"+
		"GET  /api/2.0/{text_id}                   fetch as JSON\n"+
		"GET  /{text_id}                           fetch as plain text\n"+
		"GET  /{text_id}/qr                        share link as QR code\n")
}

// fetchText retrieves a text and writes the error response itself when the
// lookup fails. Expired and tampered texts surface as plain 404s.
func (s *Server) fetchText(w http.ResponseWriter, r *http.Request, id string) (string, bool) {
	text, err := s.texts.Retrieve(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, textstore.ErrInvalidID):
			s.writeError(w, http.StatusBadRequest, "malformed text id")
		case errors.Is(err, textstore.ErrNotFound):
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("text %q doesn't exist", id))
		default:
			s.serverError(w, err)
		}
		return "", false
	}
	return text, true
}

// authorized checks the "Authorization: AuthKey <key>" header against the
// configured key. An empty configured key disables the guard.
func (s *Server) authorized(r *http.Request) bool {
	if s.authKey == "" {
		return true
	}
	parts := strings.Fields(r.Header.Get("Authorization"))
	return len(parts) == 2 && parts[0] == "AuthKey" && parts[1] == s.authKey
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	if s.logger != nil {
		s.logger.Error("internal error", "error", err)
	}
	s.writeError(w, http.StatusInternalServerError, "internal server error")
}

func etagFor(content string) string {
	sum := sha256.Sum256([]byte(content))
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
