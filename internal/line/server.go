package line

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"jizhang/internal/bot"
	"jizhang/internal/cache"
	"jizhang/internal/core"
	applog "jizhang/internal/log"
	"jizhang/internal/middleware/ratelimit"
	"jizhang/internal/middleware/security"
	"jizhang/internal/middleware/trace"
	"jizhang/internal/services"
)

// Replier sends a reply back on a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken string, reply *bot.Reply) error
}

// Server receives LINE webhooks and exposes the admin bulk operations.
type Server struct {
	http.Server

	channelSecret string
	router        *bot.Router
	replier       Replier
	ledger        *services.LedgerService

	// seen drops webhook redeliveries by message id.
	seen    *cache.LRUCache[struct{}]
	limiter *ratelimit.Limiter
}

func NewServer(addr, channelSecret string, router *bot.Router, replier Replier, ledger *services.LedgerService) *Server {
	extractor := security.NewIPExtractor()

	s := &Server{
		channelSecret: channelSecret,
		router:        router,
		replier:       replier,
		ledger:        ledger,
		seen:          cache.NewLRUCache[struct{}](10000, 10*time.Minute),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: 300,
			ExtractIP:         extractor.ClientIP,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /callback", s.handleCallback)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("POST /admin/batch-delete", s.handleBatchDelete)
	mux.HandleFunc("POST /admin/clear/{userID}", s.handleClearUser)

	logger := applog.New(applog.Config{
		Component: applog.ComponentWebhook,
		Handler:   slog.Default().Handler(),
	})

	headers := security.Headers(security.DefaultHeadersConfig())
	handler := s.limiter.Middleware(mux)
	handler = headers(handler)
	handler = applog.RequestLogging(logger)(handler)
	handler = applog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           trace.Middleware(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// handleCallback verifies the signature, then handles each text message
// event. It always answers 200 once the signature checks out: LINE
// retries non-200 deliveries, and a handler failure must not replay the
// whole batch.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if !ValidateSignature(s.channelSecret, r.Header.Get("X-Line-Signature"), body) {
		applog.FromContext(ctx).WarnContext(ctx, "Webhook signature rejected",
			"request_id", trace.RequestID(ctx), "client_ip", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Malformed webhook body", "error", err)
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	for _, event := range req.Events {
		s.handleEvent(ctx, event)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleEvent(ctx context.Context, event Event) {
	if event.Type != "message" || event.Message.Type != "text" {
		return
	}
	if event.Source.UserID == "" {
		return
	}
	if event.Message.ID != "" && s.seen.Remember(event.Message.ID, struct{}{}) {
		applog.FromContext(ctx).InfoContext(ctx, "Dropped redelivered message", "message_id", event.Message.ID)
		return
	}

	reply := s.router.HandleMessage(ctx, event.Source.UserID, event.Message.Text, event.Source.IsGroupChannel())
	if reply == nil {
		return
	}

	// A failed send is logged and swallowed: the ledger write already
	// happened and the reply token cannot be retried anyway.
	if err := s.replier.Reply(ctx, event.ReplyToken, reply); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to send reply",
			"message_id", event.Message.ID,
			"user_id", event.Source.UserID,
			"error", err)
	}
}

type batchDeleteRequest struct {
	UserID string  `json:"user_id"`
	IDs    []int64 `json:"ids"`
}

type batchDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || len(req.IDs) == 0 {
		http.Error(w, "user_id and ids are required", http.StatusBadRequest)
		return
	}

	deleted, err := s.ledger.DeleteBulk(ctx, req.IDs, req.UserID)
	switch {
	case errors.Is(err, core.ErrNotOwner):
		http.Error(w, "some records belong to another user", http.StatusForbidden)
		return
	case err != nil:
		applog.FromContext(ctx).ErrorContext(ctx, "Batch delete failed",
			"user_id", req.UserID, "ids", len(req.IDs), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, batchDeleteResponse{Deleted: deleted})
}

func (s *Server) handleClearUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.PathValue("userID")
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return
	}

	deleted, err := s.ledger.ClearAll(ctx, userID)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Clear user failed", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, batchDeleteResponse{Deleted: deleted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", fmt.Sprintf("%v", err))
	}
}
