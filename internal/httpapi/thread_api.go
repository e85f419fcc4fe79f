package httpapi

import (
	"errors"
	"net/http"

	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/thread"
)

// ThreadAPI handles comment sections.
type ThreadAPI struct {
	threads *thread.Registry
	logger  *logging.Logger
}

// NewThreadAPI creates a new thread API handler
func NewThreadAPI(threads *thread.Registry, logger *logging.Logger) *ThreadAPI {
	return &ThreadAPI{
		threads: threads,
		logger:  logger,
	}
}

// RegisterRoutes registers comment routes on the given mux
func (api *ThreadAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/posts/", corsMiddleware(api.handlePosts))
}

type sendRequest struct {
	Text string `json:"text"`
}

// handlePosts dispatches:
//
//	GET|POST|DELETE /api/posts/{id}/comments
//	PUT /api/posts/{id}/draft
//	POST /api/posts/{id}/comments/{commentID}/{action}
//	POST /api/posts/{id}/replies/{replyID}/{action}
func (api *ThreadAPI) handlePosts(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/posts/")
	if len(parts) < 2 {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	postID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "comments":
		api.handleComments(w, r, postID)
	case len(parts) == 2 && parts[1] == "draft":
		api.handleDraft(w, r, postID)
	case len(parts) == 4 && parts[1] == "comments":
		api.handleCommentAction(w, r, postID, parts[2], parts[3])
	case len(parts) == 4 && parts[1] == "replies":
		api.handleReplyAction(w, r, postID, parts[2], parts[3])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	}
}

// engine returns the loaded thread for postID. ?reload=1 refetches it.
func (api *ThreadAPI) engine(r *http.Request, postID string) (*thread.Engine, error) {
	e, err := api.threads.Open(r.Context(), postID)
	if err != nil {
		return nil, err
	}
	if r.URL.Query().Get("reload") == "1" {
		if err := e.Load(r.Context()); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (api *ThreadAPI) handleComments(w http.ResponseWriter, r *http.Request, postID string) {
	switch r.Method {
	case http.MethodGet:
		e, err := api.engine(r, postID)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e.View())

	case http.MethodPost:
		var req sendRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
		e, err := api.engine(r, postID)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		if err := e.Send(r.Context(), req.Text); err != nil {
			api.writeThreadError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e.View())

	case http.MethodDelete:
		api.threads.Release(postID)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDraft stores composer text so a reply target mention survives
// between requests.
func (api *ThreadAPI) handleDraft(w http.ResponseWriter, r *http.Request, postID string) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	e, err := api.engine(r, postID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	e.SetDraft(req.Text)
	writeJSON(w, http.StatusOK, e.View())
}

func (api *ThreadAPI) handleCommentAction(w http.ResponseWriter, r *http.Request, postID, commentID, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	e, err := api.engine(r, postID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	switch action {
	case "expand":
		err = e.Expand(commentID)
	case "collapse":
		err = e.Collapse(commentID)
	case "next":
		_, err = e.NextPage(commentID)
	case "prev":
		_, err = e.PrevPage(commentID)
	case "reply":
		_, err = e.ReplyToComment(commentID)
	case "like":
		err = e.LikeComment(r.Context(), commentID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown comment action")
		return
	}
	if err != nil {
		api.writeThreadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (api *ThreadAPI) handleReplyAction(w http.ResponseWriter, r *http.Request, postID, replyID, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	e, err := api.engine(r, postID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	switch action {
	case "reply":
		_, err = e.ReplyToReply(replyID)
	case "like":
		err = e.LikeReply(r.Context(), replyID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown reply action")
		return
	}
	if err != nil {
		api.writeThreadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.View())
}

func (api *ThreadAPI) writeThreadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, thread.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, thread.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		api.logger.Warn("Comment request failed", logging.WithField("error", err.Error()))
		writeUpstreamError(w, err)
	}
}
