package api

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	segjson "github.com/segmentio/encoding/json"

	"hftcore/internal/config"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	provider Provider
	cfg      config.APIConfig
	hub      *Hub
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(provider Provider, cfg config.APIConfig, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		cfg:      cfg,
		hub:      hub,
		logger:   logger.With("component", "api-handlers"),
	}
}

// HandleHealth returns a simple liveness response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// HandleSnapshot returns the current engine state.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := BuildSnapshot(h.provider)

	w.Header().Set("Content-Type", "application/json")
	if err := segjson.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
}

// HandleAuditExport streams the most recent audit trail entries as a
// zstd-compressed JSON array, for offline compliance review (§4.8).
func (h *Handlers) HandleAuditExport(w http.ResponseWriter, r *http.Request) {
	n := 10000
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := h.provider.OrderManager().AuditEntries(n)
	views := make([]AuditEntryView, len(entries))
	for i, e := range entries {
		views[i] = newAuditEntryView(e)
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="audit.json.zst"`)
	zw := newZstdWriter(w)
	defer zw.Close()

	if err := segjson.NewEncoder(zw).Encode(views); err != nil {
		h.logger.Error("failed to encode audit export", "error", err)
	}
}

// HandleWebSocket upgrades the connection and registers a new client.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.cfg.AllowedOrigins, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(h.hub, conn)

	snapshot := BuildSnapshot(h.provider)
	evt := newDashboardEvent("snapshot", snapshot)
	data, err := segjson.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client")
	}
}

func isOriginAllowed(origin string, allowed []string, reqHost string) bool {
	if origin == "" {
		// Non-browser clients (curl, internal monitors) often omit Origin.
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(allowed) > 0 {
		for _, a := range allowed {
			u, err := url.Parse(a)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	reqHostname := normalizeHost(reqHost)
	return reqHostname != "" && host == reqHostname
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
