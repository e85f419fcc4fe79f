package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// Backend is the part of the gateway the façade calls directly.
type Backend interface {
	RecordAdClick(ctx context.Context, adID string) error
	FetchConversations(ctx context.Context) ([]models.Conversation, error)
}

// pathParts splits what follows prefix into non-empty segments.
func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// clientKey identifies the caller for throttling.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
