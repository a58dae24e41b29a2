package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/application/usecase"
	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/internal/infrastructure/eventbus"
	"github.com/soporteops/soporteops/console/internal/infrastructure/monitoring"
	"github.com/soporteops/soporteops/console/internal/infrastructure/persistence"
	"github.com/soporteops/soporteops/console/internal/infrastructure/remote"
	"github.com/soporteops/soporteops/console/internal/infrastructure/store"
)

type webhookFixture struct {
	router  *gin.Engine
	bus     eventbus.Bus
	secret  string
	instID  int64
	events  *[]eventbus.Event
	monitor *monitoring.Monitor
}

func newWebhookFixture(t *testing.T, verify bool) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	repo := persistence.NewMemoryInstanceRepository()
	inst := &entity.Instance{
		Name:          "Alpha Corp (Servicios)",
		BaseURL:       "https://alpha.chatwoot.demo",
		APIKey:        "cw_api_key_alpha_123",
		AccountID:     101,
		Industry:      entity.IndustryServices,
		WebhookSecret: "topsecret",
	}
	if err := repo.Save(context.Background(), inst); err != nil {
		t.Fatal(err)
	}

	api := remote.NewMemoryAPI(repo, nil, log)
	st := store.NewStore(api, log)
	instances := usecase.NewInstanceUsecase(repo, api, st, log)

	bus := eventbus.NewSyncBus(log)
	t.Cleanup(bus.Close)

	var events []eventbus.Event
	for _, name := range []string{
		eventbus.EventMessageCreated,
		eventbus.EventContactUpdated,
		eventbus.EventConversationCreated,
		eventbus.EventConversationUpdated,
	} {
		bus.Subscribe(name, func(ctx context.Context, e eventbus.Event) {
			events = append(events, e)
		})
	}

	monitor := monitoring.NewMonitor(log)
	handler := NewWebhookHandler(instances, bus, monitor, func() bool { return verify }, log)

	router := gin.New()
	router.POST("/webhooks/chatwoot/:id", handler.Receive)

	return &webhookFixture{
		router:  router,
		bus:     bus,
		secret:  inst.WebhookSecret,
		instID:  inst.ID,
		events:  &events,
		monitor: monitor,
	}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (f *webhookFixture) post(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/chatwoot/1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestWebhook_PublishesTypedEvent(t *testing.T) {
	f := newWebhookFixture(t, true)

	body := []byte(`{
		"event": "message_created",
		"conversationId": 101,
		"message": {
			"id": 9001,
			"content": "Hola, necesito ayuda",
			"createdAt": "` + time.Now().UTC().Format(time.RFC3339) + `",
			"sender": {"type": "user", "name": "Carlos"},
			"isInternal": false
		}
	}`)

	w := f.post(body, sign(body, f.secret))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	if len(*f.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(*f.events))
	}
	mc, ok := (*f.events)[0].(eventbus.MessageCreated)
	if !ok {
		t.Fatalf("unexpected event type %T", (*f.events)[0])
	}
	if mc.InstanceID != f.instID || mc.ConversationID != 101 || mc.Message.Content != "Hola, necesito ayuda" {
		t.Fatalf("unexpected event %+v", mc)
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	f := newWebhookFixture(t, true)

	body := []byte(`{"event":"contact_updated","contact":{"id":201,"name":"Ana"}}`)

	w := f.post(body, "deadbeef")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(*f.events) != 0 {
		t.Fatal("rejected delivery must not publish")
	}

	// 无签名头同样拒绝
	w = f.post(body, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", w.Code)
	}
}

func TestWebhook_SignatureCheckDisabled(t *testing.T) {
	f := newWebhookFixture(t, false)

	body := []byte(`{"event":"contact_updated","contact":{"id":201,"name":"Ana"}}`)
	w := f.post(body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with verification off, got %d", w.Code)
	}
	if len(*f.events) != 1 {
		t.Fatal("event must publish when verification is disabled")
	}
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, true)

	body := []byte(`{"event":"contact_created","contact":{"id":300,"name":"Luis"}}`)
	w := f.post(body, sign(body, f.secret))
	if w.Code != http.StatusOK {
		t.Fatalf("unknown events must be acknowledged, got %d", w.Code)
	}
	if len(*f.events) != 0 {
		t.Fatal("unknown events must not publish")
	}
}

func TestWebhook_MalformedPayloadRejected(t *testing.T) {
	f := newWebhookFixture(t, true)

	body := []byte(`{not json`)
	w := f.post(body, sign(body, f.secret))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhook_UnknownInstance(t *testing.T) {
	f := newWebhookFixture(t, true)

	body := []byte(`{"event":"contact_updated","contact":{"id":1,"name":"X"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/chatwoot/99", bytes.NewReader(body))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown instance, got %d", w.Code)
	}
}

// 残缺载荷（事件名合法但缺少对应实体）按未知事件处理
func TestWebhook_IncompletePayloadIgnored(t *testing.T) {
	f := newWebhookFixture(t, true)

	body := []byte(`{"event":"message_created","conversationId":101}`)
	w := f.post(body, sign(body, f.secret))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(*f.events) != 0 {
		t.Fatal("incomplete payloads must not publish")
	}
}
