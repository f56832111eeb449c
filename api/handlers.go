// Package api is the HTTP command façade over a board.Board: one
// route per player-facing operation, each translating matcherrors
// sentinels into HTTP status codes.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"memscramble-server/audit"
	"memscramble-server/auth"
	"memscramble-server/board"
	"memscramble-server/config"
	"memscramble-server/matcherrors"
)

const bearerPrefix = "Bearer "

// Handler holds the dependencies shared by every route.
type Handler struct {
	Config     *config.Config
	Board      *board.Board
	AuditStore audit.Store
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, b *board.Board, auditStore audit.Store) *Handler {
	return &Handler{Config: cfg, Board: b, AuditStore: auditStore}
}

// CORS sets CORS headers on the response. Call before writing a body;
// returns true if the request was a preflight OPTIONS and has already
// been answered.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// recoverPanic turns an unexpected panic into a 500 instead of
// downing the whole process; internal invariant violations in
// card/board panic and are only ever recovered here.
func recoverPanic(w http.ResponseWriter) {
	if r := recover(); r != nil {
		slog.Error("panic recovered", "tag", "api", "panic", r)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// authenticatedPlayerID validates the Authorization header and returns
// the player ID, or "" if auth is not configured or the header is
// absent/invalid. When Config.AuthIssuerURL is empty, auth is treated
// as not configured and this always returns "".
func (h *Handler) authenticatedPlayerID(r *http.Request) string {
	if h.Config.AuthIssuerURL == "" {
		return ""
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	claims, err := auth.ValidatePlayerToken(h.Config.AuthIssuerURL, token)
	if err != nil {
		return ""
	}
	return auth.PlayerIDFromClaims(claims)
}

// resolvePlayerID requires a bearer token whenever auth is configured,
// and otherwise falls back to the path parameter. It reports false
// when auth is configured but the token's subject doesn't match
// pathPlayerID, or when the token is missing/invalid.
func (h *Handler) resolvePlayerID(r *http.Request, pathPlayerID string) (string, bool) {
	if h.Config.AuthIssuerURL == "" {
		return pathPlayerID, true
	}
	authenticated := h.authenticatedPlayerID(r)
	if authenticated == "" {
		return "", false
	}
	if pathPlayerID != "" && pathPlayerID != authenticated {
		return "", false
	}
	return authenticated, true
}

// writeError maps a matcherrors sentinel to its HTTP status and writes
// a plain-text body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matcherrors.ErrCardRemoved), errors.Is(err, matcherrors.ErrRestrictedAccess):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, matcherrors.ErrInvalidAddress):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, matcherrors.ErrCancelled):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Error("unmapped error", "tag", "api", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// Look handles GET /look/{playerId}.
func (h *Handler) Look(w http.ResponseWriter, r *http.Request) {
	defer recoverPanic(w)
	if CORS(w, r) {
		return
	}
	playerID, ok := h.resolvePlayerID(r, r.PathValue("playerId"))
	if !ok {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}
	w.Write([]byte(h.Board.Look(playerID)))
}

// Flip handles GET /flip/{playerId}/{row}/{column}.
func (h *Handler) Flip(w http.ResponseWriter, r *http.Request) {
	defer recoverPanic(w)
	if CORS(w, r) {
		return
	}
	playerID, ok := h.resolvePlayerID(r, r.PathValue("playerId"))
	if !ok {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	row, err1 := strconv.Atoi(r.PathValue("row"))
	col, err2 := strconv.Atoi(r.PathValue("column"))
	if err1 != nil || err2 != nil {
		writeError(w, matcherrors.InvalidAddress(row, col))
		return
	}

	index, err := h.Board.IndexForRowColumn(row, col)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Board.Flip(r.Context(), playerID, index); err != nil {
		writeError(w, err)
		return
	}

	if h.AuditStore != nil {
		if recErr := h.AuditStore.RecordEvent(r.Context(), audit.EventFlip, playerID, index); recErr != nil {
			slog.Error("recording flip event", "tag", "api", "err", recErr)
		}
	}

	w.Write([]byte(h.Board.Look(playerID)))
}

// Replace handles GET /replace/{playerId}/{from}/{to}.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	defer recoverPanic(w)
	if CORS(w, r) {
		return
	}
	playerID, ok := h.resolvePlayerID(r, r.PathValue("playerId"))
	if !ok {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	h.Board.Replace(r.PathValue("from"), r.PathValue("to"))
	w.Write([]byte(h.Board.Look(playerID)))
}

// Watch handles GET /watch/{playerId}. It blocks until the board
// changes or the client disconnects.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	defer recoverPanic(w)
	if CORS(w, r) {
		return
	}
	playerID, ok := h.resolvePlayerID(r, r.PathValue("playerId"))
	if !ok {
		http.Error(w, "authorization required", http.StatusUnauthorized)
		return
	}

	if err := h.Board.Watch(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.Write([]byte(h.Board.Look(playerID)))
}
