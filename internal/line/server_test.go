package line

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jizhang/internal/bot"
	"jizhang/internal/core"
	"jizhang/internal/parse"
	"jizhang/internal/services"
	"jizhang/internal/stats"
	"jizhang/internal/store/sqlite"
)

const testSecret = "test-channel-secret"

type fakeReplier struct {
	replies []*bot.Reply
	tokens  []string
	err     error
}

func (f *fakeReplier) Reply(_ context.Context, token string, reply *bot.Reply) error {
	if f.err != nil {
		return f.err
	}
	f.tokens = append(f.tokens, token)
	f.replies = append(f.replies, reply)
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeReplier, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := services.NewLedgerService(st, nil)
	router := bot.NewRouter(parse.NewClassifier("@ai"), svc, stats.New(st))
	replier := &fakeReplier{}
	s := NewServer(":0", testSecret, router, replier, svc)
	t.Cleanup(func() { s.limiter.Stop() })
	return s, replier, st
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookBody(t *testing.T, events ...Event) []byte {
	t.Helper()
	body, err := json.Marshal(WebhookRequest{Events: events})
	if err != nil {
		t.Fatalf("marshal webhook: %v", err)
	}
	return body
}

func textEvent(msgID, userID, sourceType, text string) Event {
	return Event{
		Type:       "message",
		ReplyToken: "token-" + msgID,
		Source:     Source{Type: sourceType, UserID: userID},
		Message:    Message{ID: msgID, Type: "text", Text: text},
	}
}

func postCallback(s *Server, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestValidateSignature(t *testing.T) {
	body := []byte(`{"events":[]}`)

	if !ValidateSignature(testSecret, sign(body), body) {
		t.Error("valid signature rejected")
	}
	if ValidateSignature(testSecret, sign(body), []byte("tampered")) {
		t.Error("signature accepted for a different body")
	}
	if ValidateSignature("wrong-secret", sign(body), body) {
		t.Error("signature accepted under the wrong secret")
	}
	if ValidateSignature(testSecret, "not base64 !!!", body) {
		t.Error("undecodable signature accepted")
	}
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	s, replier, _ := newTestServer(t)
	body := webhookBody(t, textEvent("m1", "user-1", "user", "午餐 120"))

	rec := postCallback(s, body, "aW52YWxpZA==")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(replier.replies) != 0 {
		t.Error("handler ran despite bad signature")
	}
}

func TestCallbackRecordsExpense(t *testing.T) {
	s, replier, st := newTestServer(t)
	body := webhookBody(t, textEvent("m1", "user-1", "user", "午餐 120"))

	rec := postCallback(s, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if len(replier.replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replier.replies))
	}
	if !strings.Contains(replier.replies[0].Text, "✅ 記帳成功") {
		t.Errorf("reply = %q", replier.replies[0].Text)
	}
	if replier.tokens[0] != "token-m1" {
		t.Errorf("reply token = %q", replier.tokens[0])
	}

	records, err := st.ListRecent(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(records) != 1 || records[0].Amount.Cents != 12000 {
		t.Errorf("stored records = %+v", records)
	}
}

func TestCallbackDeduplicatesRedelivery(t *testing.T) {
	s, replier, st := newTestServer(t)
	body := webhookBody(t, textEvent("m1", "user-1", "user", "午餐 120"))

	postCallback(s, body, sign(body))
	postCallback(s, body, sign(body))

	if len(replier.replies) != 1 {
		t.Errorf("got %d replies after redelivery, want 1", len(replier.replies))
	}
	records, _ := st.ListRecent(context.Background(), "user-1", 5)
	if len(records) != 1 {
		t.Errorf("redelivery duplicated the record: %d rows", len(records))
	}
}

func TestCallbackGroupGating(t *testing.T) {
	s, replier, _ := newTestServer(t)
	body := webhookBody(t,
		textEvent("m1", "user-1", "group", "hello"),
		textEvent("m2", "user-1", "group", "@ai 午餐 120"),
	)

	rec := postCallback(s, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(replier.replies) != 1 {
		t.Fatalf("got %d replies, want 1 (only the addressed message)", len(replier.replies))
	}
	if !strings.Contains(replier.replies[0].Text, "✅ 記帳成功") {
		t.Errorf("reply = %q", replier.replies[0].Text)
	}
}

func TestCallbackIgnoresNonTextEvents(t *testing.T) {
	s, replier, _ := newTestServer(t)
	body := webhookBody(t,
		Event{Type: "follow", Source: Source{Type: "user", UserID: "user-1"}},
		Event{Type: "message", Source: Source{Type: "user", UserID: "user-1"},
			Message: Message{ID: "m1", Type: "sticker"}},
	)

	rec := postCallback(s, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(replier.replies) != 0 {
		t.Errorf("got %d replies for non-text events, want 0", len(replier.replies))
	}
}

func TestCallbackSurvivesReplyFailure(t *testing.T) {
	s, replier, st := newTestServer(t)
	replier.err = fmt.Errorf("reply API status 500")
	body := webhookBody(t, textEvent("m1", "user-1", "user", "午餐 120"))

	rec := postCallback(s, body, sign(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when the reply send fails", rec.Code)
	}

	records, _ := st.ListRecent(context.Background(), "user-1", 5)
	if len(records) != 1 {
		t.Errorf("record lost on reply failure: %d rows", len(records))
	}
}

func TestBatchDeleteEndpoint(t *testing.T) {
	s, _, st := newTestServer(t)
	ctx := context.Background()

	id1, _ := st.Insert(ctx, "user-1", core.Money{Cents: 100}, "a")
	id2, _ := st.Insert(ctx, "user-1", core.Money{Cents: 100}, "b")
	foreign, _ := st.Insert(ctx, "other", core.Money{Cents: 100}, "c")

	do := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/batch-delete", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do(fmt.Sprintf(`{"user_id":"user-1","ids":[%d,%d]}`, id1, id2))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp batchDeleteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", resp.Deleted)
	}

	if rec := do(fmt.Sprintf(`{"user_id":"user-1","ids":[%d]}`, foreign)); rec.Code != http.StatusForbidden {
		t.Errorf("foreign delete status = %d, want 403", rec.Code)
	}
	if rec := do(`{"ids":[1]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", rec.Code)
	}
}

func TestClearUserEndpoint(t *testing.T) {
	s, _, st := newTestServer(t)
	ctx := context.Background()

	st.Insert(ctx, "user-1", core.Money{Cents: 100}, "a")
	st.Insert(ctx, "user-1", core.Money{Cents: 100}, "b")

	req := httptest.NewRequest(http.MethodPost, "/admin/clear/user-1", nil)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp batchDeleteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", resp.Deleted)
	}

	records, _ := st.ListRecent(ctx, "user-1", 10)
	if len(records) != 0 {
		t.Errorf("%d records left after clear, want 0", len(records))
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
