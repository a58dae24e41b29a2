package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
	"github.com/soporteops/soporteops/console/pkg/errors"
)

func clientTestInstance(baseURL string) entity.Instance {
	return entity.Instance{
		ID:        7,
		Name:      "Prueba",
		BaseURL:   baseURL,
		APIKey:    "secret-key",
		AccountID: 707,
		Industry:  entity.IndustryServices,
	}
}

func TestClient_SendsCredentials(t *testing.T) {
	var gotAuth, gotAccount, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccount = r.Header.Get("X-Account-Id")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]entity.Conversation{})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	inst := clientTestInstance(srv.URL)
	if _, err := c.ListConversations(context.Background(), inst); err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotAccount != "707" {
		t.Fatalf("unexpected account header %q", gotAccount)
	}
	if gotPath != "/api/v1/instances/7/conversations" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, errors.IsUnauthorized},
		{"forbidden", http.StatusForbidden, errors.IsUnauthorized},
		{"not found", http.StatusNotFound, errors.IsNotFound},
		{"bad request", http.StatusBadRequest, errors.IsInvalidInput},
		{"server error", http.StatusInternalServerError, errors.IsRemoteFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]string{"detail": "algo salió mal"})
			}))
			defer srv.Close()

			c := NewClient(zap.NewNop())
			_, err := c.ListConversations(context.Background(), clientTestInstance(srv.URL))
			if err == nil || !tc.check(err) {
				t.Fatalf("status %d mapped to %v", tc.status, err)
			}
		})
	}
}

func TestClient_UpdateStagePayload(t *testing.T) {
	var gotMethod string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(entity.Conversation{ID: 100, PipelineStage: gotBody["new_stage_id"]})
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	conv, err := c.UpdateConversationStage(context.Background(), 100, "stage_ganado", clientTestInstance(srv.URL))
	if err != nil {
		t.Fatalf("update stage: %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", gotMethod)
	}
	if gotBody["new_stage_id"] != "stage_ganado" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if conv.PipelineStage != "stage_ganado" {
		t.Fatalf("echo not decoded: %v", conv)
	}
}

func TestClient_BreakerTripsAfterRepeatedServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(zap.NewNop())
	inst := clientTestInstance(srv.URL)
	for i := 0; i < 5; i++ {
		if _, err := c.ListConversations(context.Background(), inst); !errors.IsRemoteFailure(err) {
			t.Fatalf("call %d: expected remote failure, got %v", i, err)
		}
	}
	if hits != 5 {
		t.Fatalf("server hits = %d, want 5", hits)
	}

	// Sixth call must be rejected by the open circuit without a request.
	_, err := c.ListConversations(context.Background(), inst)
	if !errors.IsRemoteFailure(err) {
		t.Fatalf("expected remote failure from open circuit, got %v", err)
	}
	if hits != 5 {
		t.Fatalf("open circuit still hit the server (%d hits)", hits)
	}
}

func TestClient_NetworkFailureIsRemoteFailure(t *testing.T) {
	c := NewClient(zap.NewNop())
	inst := clientTestInstance("http://127.0.0.1:1")
	_, err := c.ListConversations(context.Background(), inst)
	if !errors.IsRemoteFailure(err) {
		t.Fatalf("expected remote failure, got %v", err)
	}
}
