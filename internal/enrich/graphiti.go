// Package enrich holds the context-enrichment source adapters: the
// knowledge-graph search, the arXiv research-paper search, and the
// agent-registry search. Each adapter degrades to a human-readable
// message on failure so one broken upstream never sinks a webhook.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

const graphitiTimeout = 30 * time.Second

// graphitiHeader prefixes every successful knowledge-graph rendering.
// The dedup logic keys on it, so it must stay byte-stable.
const graphitiHeader = "Relevant Entities from Knowledge Graph:\n\n"

// stopWords are dropped when extracting content words from a prompt.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {},
}

// Graphiti queries the knowledge-graph unified search endpoint.
type Graphiti struct {
	cfg   config.GraphitiConfig
	http  *http.Client
	retry httpx.RetryConfig
}

func NewGraphiti(cfg config.GraphitiConfig) *Graphiti {
	return &Graphiti{
		cfg:   cfg,
		http:  &http.Client{Timeout: graphitiTimeout},
		retry: httpx.DefaultRetryConfig(),
	}
}

// Result is the common adapter output: a rendered context string plus
// whether the source actually produced content.
type Result struct {
	Context string
	Success bool
}

type searchTuning struct {
	SearchMethods []string `json:"search_methods"`
	Reranker      string   `json:"reranker"`
	BFSMaxDepth   int      `json:"bfs_max_depth"`
	SimMinScore   float64  `json:"sim_min_score"`
	MMRLambda     float64  `json:"mmr_lambda"`

	CentralityBoostFactor float64 `json:"centrality_boost_factor,omitempty"`
}

type searchConfig struct {
	EdgeConfig       searchTuning `json:"edge_config"`
	NodeConfig       searchTuning `json:"node_config"`
	Limit            int          `json:"limit"`
	RerankerMinScore float64      `json:"reranker_min_score"`
}

type searchRequest struct {
	Query   string         `json:"query"`
	Config  searchConfig   `json:"config"`
	Filters map[string]any `json:"filters"`
}

type searchResponse struct {
	Nodes []struct {
		Name    string `json:"name"`
		Summary string `json:"summary"`
	} `json:"nodes"`
	Edges []struct {
		Fact string `json:"fact"`
	} `json:"edges"`
}

// BuildQuery extracts up to two content words from the prompt and
// prepends them to the full prompt. Short words and stop words are
// skipped so the keyword prefix biases retrieval toward the subject.
func BuildQuery(prompt string) string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(prompt)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if len(word) <= 3 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == 2 {
			break
		}
	}
	if len(keywords) == 0 {
		return prompt
	}
	return strings.Join(keywords, " ") + " " + prompt
}

// Search runs the unified search and renders nodes and facts into a
// context block. Empty results come back with Success false and a
// human-readable message.
func (g *Graphiti) Search(ctx context.Context, prompt string) Result {
	query := BuildQuery(prompt)

	tuning := searchTuning{
		SearchMethods: g.cfg.SearchMethods,
		Reranker:      g.cfg.Reranker,
		BFSMaxDepth:   g.cfg.BFSMaxDepth,
		SimMinScore:   g.cfg.SimMinScore,
		MMRLambda:     g.cfg.MMRLambda,
	}
	nodeTuning := tuning
	nodeTuning.CentralityBoostFactor = g.cfg.CentralityBoost

	reqBody := searchRequest{
		Query: query,
		Config: searchConfig{
			EdgeConfig:       tuning,
			NodeConfig:       nodeTuning,
			Limit:            g.cfg.MaxNodes,
			RerankerMinScore: 0,
		},
		Filters: map[string]any{},
	}

	resp, err := httpx.RetryDo(ctx, g.retry, func() (*searchResponse, error) {
		return g.search(ctx, reqBody)
	})
	if err != nil {
		return Result{Context: fmt.Sprintf("Error querying Graphiti: %v", err)}
	}

	return g.render(resp, query)
}

func (g *Graphiti) search(ctx context.Context, body searchRequest) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("graphiti: marshal request: %w", err)
	}

	url := strings.TrimRight(g.cfg.URL, "/") + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("graphiti: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graphiti: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httpx.HTTPError{
			Status:     resp.StatusCode,
			Body:       fmt.Sprintf("graphiti: %s", string(respBody)),
			RetryAfter: httpx.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("graphiti: decode response: %w", err)
	}
	return &out, nil
}

func (g *Graphiti) render(resp *searchResponse, query string) Result {
	var parts []string

	nodes := resp.Nodes
	if len(nodes) > g.cfg.MaxNodes {
		nodes = nodes[:g.cfg.MaxNodes]
	}
	for _, n := range nodes {
		parts = append(parts, fmt.Sprintf("Node: %s\nSummary: %s", n.Name, n.Summary))
	}

	seen := make(map[string]struct{})
	facts := 0
	for _, e := range resp.Edges {
		if e.Fact == "" || facts >= g.cfg.MaxFacts {
			continue
		}
		if _, dup := seen[e.Fact]; dup {
			continue
		}
		seen[e.Fact] = struct{}{}
		parts = append(parts, "Fact: "+e.Fact)
		facts++
	}

	if len(parts) == 0 {
		return Result{
			Context: fmt.Sprintf(
				"No relevant information found in Graphiti for query: '%s' (searched %d nodes, %d facts)",
				query, g.cfg.MaxNodes, g.cfg.MaxFacts),
		}
	}
	return Result{
		Context: graphitiHeader + strings.Join(parts, "\n\n"),
		Success: true,
	}
}
