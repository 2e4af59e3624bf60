package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

func graphitiConfig(url string) config.GraphitiConfig {
	return config.GraphitiConfig{
		URL:             url,
		MaxNodes:        8,
		MaxFacts:        20,
		SearchMethods:   []string{"bm25", "cosine_similarity", "bfs"},
		Reranker:        "rrf",
		BFSMaxDepth:     3,
		SimMinScore:     0.5,
		MMRLambda:       0.5,
		CentralityBoost: 2.0,
	}
}

func TestBuildQuery(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{"keywords prefixed", "summarize the kubernetes deployments", "summarize kubernetes summarize the kubernetes deployments"},
		{"stop words dropped", "what is the weather", "weather what is the weather"},
		{"short words dropped", "how do I fix it", "how do I fix it"},
		{"empty prompt", "", ""},
		{"punctuation trimmed", "Explain Graphiti, please!", "explain graphiti Explain Graphiti, please!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildQuery(tc.prompt); got != tc.want {
				t.Errorf("BuildQuery(%q) = %q, want %q", tc.prompt, got, tc.want)
			}
		})
	}
}

func TestGraphitiSearch(t *testing.T) {
	var captured searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"nodes": []map[string]string{
				{"name": "Kubernetes", "summary": "Container orchestrator"},
			},
			"edges": []map[string]string{
				{"fact": "Kubernetes schedules pods"},
				{"fact": "Kubernetes schedules pods"},
				{"fact": "Pods run containers"},
			},
		})
	}))
	defer srv.Close()

	g := NewGraphiti(graphitiConfig(srv.URL))
	got := g.Search(context.Background(), "explain kubernetes scheduling")

	if !got.Success {
		t.Fatalf("Search failed: %s", got.Context)
	}
	if !strings.HasPrefix(got.Context, "Relevant Entities from Knowledge Graph:\n\n") {
		t.Errorf("missing header:\n%s", got.Context)
	}
	if !strings.Contains(got.Context, "Node: Kubernetes\nSummary: Container orchestrator") {
		t.Errorf("node missing:\n%s", got.Context)
	}
	if n := strings.Count(got.Context, "Fact: Kubernetes schedules pods"); n != 1 {
		t.Errorf("duplicate fact rendered %d times, want 1", n)
	}
	if !strings.Contains(got.Context, "Fact: Pods run containers") {
		t.Error("second fact missing")
	}

	if captured.Config.Limit != 8 {
		t.Errorf("limit = %d, want 8", captured.Config.Limit)
	}
	if captured.Config.EdgeConfig.Reranker != "rrf" {
		t.Errorf("edge reranker = %q", captured.Config.EdgeConfig.Reranker)
	}
	if captured.Config.NodeConfig.CentralityBoostFactor != 2.0 {
		t.Errorf("node centrality boost = %v", captured.Config.NodeConfig.CentralityBoostFactor)
	}
	if captured.Config.EdgeConfig.CentralityBoostFactor != 0 {
		t.Errorf("edge config must not carry centrality boost")
	}
	if !strings.HasSuffix(captured.Query, "explain kubernetes scheduling") {
		t.Errorf("query = %q", captured.Query)
	}
	if captured.Filters == nil {
		t.Error("filters must be present, even empty")
	}
}

func TestGraphitiSearchEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"nodes": []any{}, "edges": []any{}})
	}))
	defer srv.Close()

	g := NewGraphiti(graphitiConfig(srv.URL))
	got := g.Search(context.Background(), "obscure topic nobody indexed")

	if got.Success {
		t.Error("empty results must not report success")
	}
	if !strings.Contains(got.Context, "No relevant information found in Graphiti") {
		t.Errorf("fallback message missing: %q", got.Context)
	}
}

func TestGraphitiSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewGraphiti(graphitiConfig(srv.URL))
	g.retry = httpx.RetryConfig{MaxAttempts: 1}
	got := g.Search(context.Background(), "anything")

	if got.Success {
		t.Error("upstream 400 must not report success")
	}
	if !strings.HasPrefix(got.Context, "Error querying Graphiti:") {
		t.Errorf("error message = %q", got.Context)
	}
}
