package httpapi

import (
	"errors"
	"net/http"

	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
	"github.com/johnrirwin/socialfeed/internal/session"
)

// SessionAPI handles client-local session state and the inbox preview.
type SessionAPI struct {
	session *session.Session
	backend Backend
	logger  *logging.Logger
}

// NewSessionAPI creates a new session API handler
func NewSessionAPI(sess *session.Session, backend Backend, logger *logging.Logger) *SessionAPI {
	return &SessionAPI{
		session: sess,
		backend: backend,
		logger:  logger,
	}
}

// RegisterRoutes registers session routes on the given mux
func (api *SessionAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/session", corsMiddleware(api.handleSession))
	mux.HandleFunc("/api/session/theme", corsMiddleware(api.handleTheme))
	mux.HandleFunc("/api/conversations", corsMiddleware(api.handleConversations))
}

type sessionResponse struct {
	SignedIn bool         `json:"signedIn"`
	UserID   string       `json:"userId,omitempty"`
	Username string       `json:"username,omitempty"`
	Theme    models.Theme `json:"theme"`
}

// handleSession handles GET /api/session
func (api *SessionAPI) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	theme, err := api.session.Theme(r.Context())
	if err != nil {
		api.logger.Error("Failed to read session", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read session")
		return
	}

	resp := sessionResponse{Theme: theme}
	id, err := api.session.User(r.Context())
	switch {
	case err == nil:
		resp.SignedIn = true
		resp.UserID = id.UserID
		resp.Username = id.Username
	case errors.Is(err, session.ErrNoToken):
	default:
		api.logger.Debug("Session token unreadable", logging.WithField("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, resp)
}

type themeRequest struct {
	Theme string `json:"theme"`
}

// handleTheme handles PUT /api/session/theme
func (api *SessionAPI) handleTheme(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req themeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	theme := models.ParseTheme(req.Theme)
	if err := api.session.SetTheme(r.Context(), theme); err != nil {
		api.logger.Error("Failed to save theme", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save theme")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"theme": string(theme)})
}

// handleConversations handles GET /api/conversations
func (api *SessionAPI) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conversations, err := api.backend.FetchConversations(r.Context())
	if err != nil {
		api.logger.Warn("Failed to fetch conversations", logging.WithField("error", err.Error()))
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"count":         len(conversations),
	})
}
