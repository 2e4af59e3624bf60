package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

func registryConfig(url string) config.RegistryConfig {
	return config.RegistryConfig{URL: url, MaxAgents: 10, MinScore: 0.3}
}

func TestRegistrySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/agents/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "deploy the service" {
			t.Errorf("query = %q", q.Get("query"))
		}
		if q.Get("limit") != "10" || q.Get("min_score") != "0.3" {
			t.Errorf("limit/min_score = %q/%q", q.Get("limit"), q.Get("min_score"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"agents": []map[string]any{
				{"agent_id": "agent-ops", "name": "Ops Agent", "score": 0.91},
				{"agent_id": "agent-dev", "name": "Dev Agent", "score": 0.457},
			},
		})
	}))
	defer srv.Close()

	reg := NewRegistry(registryConfig(srv.URL))
	got := reg.Search(context.Background(), "deploy the service")

	if !got.Success {
		t.Fatalf("Search failed: %s", got.Context)
	}
	if !strings.Contains(got.Context, "- Ops Agent (agent-ops) [relevance: 0.91]") {
		t.Errorf("first agent line missing:\n%s", got.Context)
	}
	if !strings.Contains(got.Context, "- Dev Agent (agent-dev) [relevance: 0.46]") {
		t.Errorf("score must round to two decimals:\n%s", got.Context)
	}
	if !strings.Contains(got.Context, "matrix_agent_message") {
		t.Error("footer instruction missing")
	}
}

func TestRegistrySearchNoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"agents": []any{}})
	}))
	defer srv.Close()

	reg := NewRegistry(registryConfig(srv.URL))
	got := reg.Search(context.Background(), "nothing relevant")

	if !got.Success {
		t.Fatalf("empty hit list is still a successful search: %s", got.Context)
	}
	if got.Context != "No relevant agents found for the current context." {
		t.Errorf("context = %q", got.Context)
	}
}

func TestRegistrySearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := NewRegistry(registryConfig(srv.URL))
	reg.retry = httpx.RetryConfig{MaxAttempts: 1}
	got := reg.Search(context.Background(), "anything")

	if got.Success {
		t.Error("503 must not report success")
	}
	if !strings.HasPrefix(got.Context, "Error retrieving available agents:") {
		t.Errorf("context = %q", got.Context)
	}
}

func TestExtractCapabilities(t *testing.T) {
	system := "You are an assistant. Expert in Kubernetes operations and cluster debugging. " +
		"You also handles incident response and coordinates postmortems with the team."

	caps := ExtractCapabilities(system)
	if len(caps) != 3 {
		t.Fatalf("capabilities = %v, want 3 entries", caps)
	}
	if !strings.HasPrefix(caps[0], "Expert in Kubernetes") {
		t.Errorf("caps[0] = %q", caps[0])
	}
	if len(caps[0]) > 100 {
		t.Errorf("capability context too long: %d", len(caps[0]))
	}

	if got := ExtractCapabilities("plain prompt with no indicators"); len(got) != 0 {
		t.Errorf("want empty, got %v", got)
	}
}

func TestNewRegistration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	long := strings.Repeat("s", 600)

	reg := NewRegistration("agent-x", "", long, now)
	if reg.Name != "Agent agent-x" {
		t.Errorf("fallback name = %q", reg.Name)
	}
	if len(reg.Description) != 500 {
		t.Errorf("description len = %d, want 500", len(reg.Description))
	}
	if reg.Status != "active" || reg.Tags == nil {
		t.Errorf("status/tags = %q/%v", reg.Status, reg.Tags)
	}
	if reg.CreatedAt != "2025-06-01T12:00:00Z" || reg.UpdatedAt != reg.CreatedAt {
		t.Errorf("timestamps = %q/%q", reg.CreatedAt, reg.UpdatedAt)
	}

	empty := NewRegistration("agent-y", "Named", "", now)
	if empty.Description != "No description available" {
		t.Errorf("empty description = %q", empty.Description)
	}
}

func TestRegister(t *testing.T) {
	var got Registration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/agents/register" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := NewRegistry(registryConfig(srv.URL))
	err := reg.Register(context.Background(),
		NewRegistration("agent-z", "Zed", "Specialized in graph analysis", time.Now()))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.AgentID != "agent-z" || got.Status != "active" {
		t.Errorf("payload = %+v", got)
	}
	if len(got.Capabilities) != 1 || !strings.HasPrefix(got.Capabilities[0], "Specialized in") {
		t.Errorf("capabilities = %v", got.Capabilities)
	}
}
