package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oculairmedia/context-gateway/internal/config"
	"github.com/oculairmedia/context-gateway/internal/httpx"
)

const registryTimeout = 15 * time.Second

// capabilityIndicators flag the phrases whose surrounding text is
// lifted from an agent's system prompt as a capability hint.
var capabilityIndicators = []string{
	"expert in", "specialized in", "responsible for",
	"manages", "handles", "coordinates", "analyzes",
	"develops", "maintains", "monitors", "tracks",
}

// Registry talks to the agent directory service.
type Registry struct {
	cfg   config.RegistryConfig
	http  *http.Client
	retry httpx.RetryConfig
}

func NewRegistry(cfg config.RegistryConfig) *Registry {
	return &Registry{
		cfg:   cfg,
		http:  &http.Client{Timeout: registryTimeout},
		retry: httpx.DefaultRetryConfig(),
	}
}

// RegistryAgent is one directory search hit.
type RegistryAgent struct {
	AgentID string  `json:"agent_id"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
}

type searchAgentsResponse struct {
	Agents []RegistryAgent `json:"agents"`
}

// Search runs a semantic search over the directory and renders the
// hits into the available_agents block format. Failures come back as a
// one-line error message so the block still records what happened.
func (r *Registry) Search(ctx context.Context, query string) Result {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprint(r.cfg.MaxAgents))
	params.Set("min_score", fmt.Sprint(r.cfg.MinScore))

	searchURL := strings.TrimRight(r.cfg.URL, "/") + "/api/v1/agents/search?" + params.Encode()

	resp, err := httpx.RetryDo(ctx, r.retry, func() (*searchAgentsResponse, error) {
		return r.search(ctx, searchURL)
	})
	if err != nil {
		return Result{Context: fmt.Sprintf("Error retrieving available agents: %v", err)}
	}

	return Result{Context: FormatAgents(resp.Agents), Success: true}
}

func (r *Registry) search(ctx context.Context, searchURL string) (*searchAgentsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &httpx.HTTPError{
			Status:     resp.StatusCode,
			Body:       fmt.Sprintf("registry: %s", string(respBody)),
			RetryAfter: httpx.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var out searchAgentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("registry: decode response: %w", err)
	}
	return &out, nil
}

// FormatAgents renders directory hits in the minimal name-and-ID form
// used by the available_agents block.
func FormatAgents(agents []RegistryAgent) string {
	if len(agents) == 0 {
		return "No relevant agents found for the current context."
	}

	parts := []string{"Available Agents for Collaboration:\n"}
	for _, a := range agents {
		id := a.AgentID
		if id == "" {
			id = "unknown"
		}
		name := a.Name
		if name == "" {
			name = "Unknown Agent"
		}
		parts = append(parts, fmt.Sprintf("- %s (%s) [relevance: %.2f]", name, id, a.Score))
	}
	parts = append(parts, "\nUse matrix_agent_message tool with agent ID to contact them.")
	return strings.Join(parts, "\n")
}

// Registration is the directory record for a newly sighted agent.
type Registration struct {
	AgentID      string   `json:"agent_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Status       string   `json:"status"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

// NewRegistration builds the record from platform agent details. The
// description is the head of the system prompt; capabilities are
// extracted from it.
func NewRegistration(agentID, name, systemPrompt string, now time.Time) Registration {
	description := systemPrompt
	if len(description) > 500 {
		description = description[:500]
	}
	if description == "" {
		description = "No description available"
	}
	if name == "" {
		name = "Agent " + agentID
	}

	ts := now.UTC().Format(time.RFC3339)
	return Registration{
		AgentID:      agentID,
		Name:         name,
		Description:  description,
		Capabilities: ExtractCapabilities(systemPrompt),
		Status:       "active",
		Tags:         []string{},
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
}

// ExtractCapabilities pulls up to five capability hints from a system
// prompt: the 100 characters following each indicator phrase.
func ExtractCapabilities(systemPrompt string) []string {
	lower := strings.ToLower(systemPrompt)
	capabilities := []string{}
	for _, indicator := range capabilityIndicators {
		idx := strings.Index(lower, indicator)
		if idx < 0 {
			continue
		}
		end := idx + 100
		if end > len(systemPrompt) {
			end = len(systemPrompt)
		}
		capabilities = append(capabilities, strings.TrimSpace(systemPrompt[idx:end]))
		if len(capabilities) == 5 {
			break
		}
	}
	return capabilities
}

// Register writes the record into the directory. 200 and 201 both
// count as success.
func (r *Registry) Register(ctx context.Context, reg Registration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("registry: marshal registration: %w", err)
	}

	registerURL := strings.TrimRight(r.cfg.URL, "/") + "/api/v1/agents/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registerURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("registry: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpx.HTTPError{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("registry: %s", string(respBody)),
		}
	}
	return nil
}
