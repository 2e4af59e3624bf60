package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         "0.0.0.0",
			Port:         5005,
			RateLimitRPM: 60,
		},
		Letta: LettaConfig{
			BaseURL: "http://192.168.50.90:8289",
		},
		Graphiti: GraphitiConfig{
			URL:             "http://192.168.50.90:8001/api",
			MaxNodes:        8,
			MaxFacts:        20,
			SearchMethods:   FlexibleStringSlice{"bm25", "cosine_similarity", "bfs"},
			Reranker:        "rrf",
			BFSMaxDepth:     3,
			SimMinScore:     0.5,
			MMRLambda:       0.5,
			CentralityBoost: 2.0,
		},
		Arxiv: ArxivConfig{
			Enabled:    true,
			BaseURL:    "http://export.arxiv.org/api/query",
			MaxResults: 5,
		},
		Registry: RegistryConfig{
			URL:       "http://192.168.50.90:8021",
			MaxAgents: 10,
			MinScore:  0.3,
		},
		Matrix: MatrixConfig{
			URL: "http://192.168.50.90:8004",
		},
		Selector: SelectorConfig{
			URL:            "http://192.168.50.90:8020",
			Limit:          3,
			MinScore:       70,
			ProtectedTools: FlexibleStringSlice{"find_agents"},
		},
		Tracing: TracingConfig{
			ServiceName: "context-gateway",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	envFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	envStr("LETTA_BASE_URL", &c.Letta.BaseURL)
	envStr("LETTA_PASSWORD", &c.Letta.Password)

	envStr("GRAPHITI_URL", &c.Graphiti.URL)
	envInt("GRAPHITI_MAX_NODES", &c.Graphiti.MaxNodes)
	envInt("GRAPHITI_MAX_FACTS", &c.Graphiti.MaxFacts)

	envStr("MATRIX_CLIENT_URL", &c.Matrix.URL)

	envStr("AGENT_REGISTRY_URL", &c.Registry.URL)
	envInt("AGENT_REGISTRY_MAX_AGENTS", &c.Registry.MaxAgents)
	envFloat("AGENT_REGISTRY_MIN_SCORE", &c.Registry.MinScore)

	envStr("TOOL_SELECTOR_URL", &c.Selector.URL)
	envInt("TOOL_ATTACHMENT_LIMIT", &c.Selector.Limit)
	envFloat("TOOL_ATTACHMENT_MIN_SCORE", &c.Selector.MinScore)
	if v := os.Getenv("PROTECTED_TOOLS"); v != "" {
		var tools FlexibleStringSlice
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tools = append(tools, t)
			}
		}
		c.Selector.ProtectedTools = tools
	}

	if v := os.Getenv("ARXIV_ENABLED"); v != "" {
		c.Arxiv.Enabled = parseBool(v)
	}

	envStr("GATEWAY_HOST", &c.Gateway.Host)
	envInt("GATEWAY_PORT", &c.Gateway.Port)

	envStr("OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}
