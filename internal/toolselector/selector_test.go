package toolselector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/oculairmedia/context-gateway/internal/config"
)

type stubLister struct {
	ids []string
	err error
}

func (s stubLister) AgentToolIDs(ctx context.Context, agentID string) ([]string, error) {
	return s.ids, s.err
}

func selectorConfig(url string) config.SelectorConfig {
	return config.SelectorConfig{URL: url, Limit: 3, MinScore: 70}
}

func TestAttach(t *testing.T) {
	var captured attachRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tools/attach" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"details": map[string]any{
				"successful_attachments": []map[string]any{
					{"name": "web_search", "tool_id": "tool-web", "match_score": 87.5},
				},
				"detached_tools":  []string{"tool-old"},
				"preserved_tools": []string{"tool-keep"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(selectorConfig(srv.URL), stubLister{ids: []string{"tool-a", "tool-b"}})
	got, err := c.Attach(context.Background(), "search the web", "agent-1",
		[]string{"*", "tool-find", "tool-b"})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if !got.Success {
		t.Error("success flag lost")
	}
	if len(got.Details.SuccessfulAttachments) != 1 ||
		got.Details.SuccessfulAttachments[0].ToolID != "tool-web" ||
		got.Details.SuccessfulAttachments[0].MatchScore != 87.5 {
		t.Errorf("attachments = %+v", got.Details.SuccessfulAttachments)
	}
	if len(got.Details.DetachedTools) != 1 || got.Details.DetachedTools[0] != "tool-old" {
		t.Errorf("detached = %v", got.Details.DetachedTools)
	}

	// "*" expands in place; later duplicates are dropped.
	wantKeep := []string{"tool-a", "tool-b", "tool-find"}
	if !reflect.DeepEqual(captured.KeepTools, wantKeep) {
		t.Errorf("keep_tools = %v, want %v", captured.KeepTools, wantKeep)
	}
	if captured.Limit != 3 || captured.MinScore != 70 {
		t.Errorf("limit/min_score = %d/%v", captured.Limit, captured.MinScore)
	}
	if captured.RequestHeartbeat || !captured.ReturnStructured {
		t.Errorf("heartbeat/structured = %v/%v", captured.RequestHeartbeat, captured.ReturnStructured)
	}
	if captured.Query != "search the web" || captured.AgentID != "agent-1" {
		t.Errorf("query/agent = %q/%q", captured.Query, captured.AgentID)
	}
}

func TestAttachExpandFailure(t *testing.T) {
	c := NewClient(selectorConfig("http://unused"), stubLister{err: errors.New("letta down")})
	_, err := c.Attach(context.Background(), "q", "agent-1", []string{"*"})
	if err == nil {
		t.Fatal("want error when keep_tools expansion fails")
	}
}

func TestAttachNoWildcard(t *testing.T) {
	var captured attachRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	// The lister must not be consulted without a "*" entry.
	c := NewClient(selectorConfig(srv.URL), stubLister{err: errors.New("should not be called")})
	if _, err := c.Attach(context.Background(), "q", "agent-1", []string{"tool-x", "", "tool-x"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !reflect.DeepEqual(captured.KeepTools, []string{"tool-x"}) {
		t.Errorf("keep_tools = %v", captured.KeepTools)
	}
}
