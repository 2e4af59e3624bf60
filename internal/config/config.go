// Package config defines the gateway configuration: defaults, JSON5
// config file, and environment overrides layered in that order.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the context gateway.
type Config struct {
	Gateway  GatewayConfig  `json:"gateway"`
	Letta    LettaConfig    `json:"letta"`
	Graphiti GraphitiConfig `json:"graphiti"`
	Arxiv    ArxivConfig    `json:"arxiv,omitempty"`
	Registry RegistryConfig `json:"registry"`
	Matrix   MatrixConfig   `json:"matrix,omitempty"`
	Selector SelectorConfig `json:"selector"`
	Blocks   BlocksConfig   `json:"blocks,omitempty"`
	Tracing  TracingConfig  `json:"tracing,omitempty"`
}

// GatewayConfig covers the inbound HTTP listener.
type GatewayConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	RateLimitRPM int    `json:"rate_limit_rpm"`
}

func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// LettaConfig points at the agent platform.
type LettaConfig struct {
	BaseURL  string `json:"base_url"`
	Password string `json:"password,omitempty"`
}

// APIBase returns the versioned API root with /v1 appended once.
func (l LettaConfig) APIBase() string {
	base := strings.TrimRight(l.BaseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// GraphitiConfig covers the knowledge-graph search service.
type GraphitiConfig struct {
	URL      string `json:"url"`
	MaxNodes int    `json:"max_nodes"`
	MaxFacts int    `json:"max_facts"`

	// Search tuning forwarded in the unified search envelope.
	SearchMethods   FlexibleStringSlice `json:"search_methods,omitempty"`
	Reranker        string              `json:"reranker,omitempty"`
	BFSMaxDepth     int                 `json:"bfs_max_depth,omitempty"`
	SimMinScore     float64             `json:"sim_min_score,omitempty"`
	MMRLambda       float64             `json:"mmr_lambda,omitempty"`
	CentralityBoost float64             `json:"centrality_boost_factor,omitempty"`
}

// ArxivConfig covers the research-paper source.
type ArxivConfig struct {
	Enabled    bool   `json:"enabled"`
	BaseURL    string `json:"base_url,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// RegistryConfig covers the agent directory service.
type RegistryConfig struct {
	URL       string  `json:"url"`
	MaxAgents int     `json:"max_agents"`
	MinScore  float64 `json:"min_score"`
}

// MatrixConfig covers the new-agent chat notification webhook.
type MatrixConfig struct {
	URL string `json:"url"`
}

// SelectorConfig covers the tool-selector service.
type SelectorConfig struct {
	URL            string              `json:"url"`
	Limit          int                 `json:"limit"`
	MinScore       float64             `json:"min_score"`
	ProtectedTools FlexibleStringSlice `json:"protected_tools,omitempty"`
}

// BlocksConfig tunes memory-block behavior.
type BlocksConfig struct {
	// AgentsSnapshot writes available_agents as a full snapshot
	// instead of a cumulative append.
	AgentsSnapshot bool `json:"agents_snapshot"`
}

// TracingConfig enables the OTLP exporter when an endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"`
	ServiceName  string `json:"service_name,omitempty"`
}
