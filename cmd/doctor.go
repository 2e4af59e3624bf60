package cmd

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oculairmedia/context-gateway/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and upstream service health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("context-gateway doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND — defaults + env apply)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Letta:")
	fmt.Printf("    %-12s %s\n", "URL:", cfg.Letta.BaseURL)
	checkSecret("Password", cfg.Letta.Password)
	checkEndpoint("Status", cfg.Letta.APIBase()+"/tools")

	fmt.Println()
	fmt.Println("  Upstreams:")
	checkEndpoint("Graphiti", cfg.Graphiti.URL)
	checkEndpoint("Registry", cfg.Registry.URL)
	checkEndpoint("Selector", cfg.Selector.URL)
	if cfg.Matrix.URL != "" {
		checkEndpoint("Matrix", cfg.Matrix.URL)
	} else {
		fmt.Printf("    %-12s (not configured)\n", "Matrix:")
	}

	fmt.Println()
	fmt.Println("  Sources:")
	if cfg.Arxiv.Enabled {
		fmt.Printf("    %-12s enabled (%s, max %d)\n", "arXiv:", cfg.Arxiv.BaseURL, cfg.Arxiv.MaxResults)
	} else {
		fmt.Printf("    %-12s disabled\n", "arXiv:")
	}
	fmt.Printf("    %-12s max %d nodes / %d facts\n", "Graph:", cfg.Graphiti.MaxNodes, cfg.Graphiti.MaxFacts)

	fmt.Println()
	fmt.Println("  Gateway:")
	fmt.Printf("    %-12s %s\n", "Listen:", cfg.Gateway.Addr())
	if cfg.Gateway.RateLimitRPM > 0 {
		fmt.Printf("    %-12s %d req/min per source\n", "Rate limit:", cfg.Gateway.RateLimitRPM)
	} else {
		fmt.Printf("    %-12s disabled\n", "Rate limit:")
	}
	if cfg.Tracing.OTLPEndpoint != "" {
		fmt.Printf("    %-12s %s\n", "Tracing:", cfg.Tracing.OTLPEndpoint)
	} else {
		fmt.Printf("    %-12s disabled\n", "Tracing:")
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

// checkEndpoint probes a URL; any HTTP response counts as reachable.
func checkEndpoint(name, url string) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("    %-12s UNREACHABLE (%s)\n", name+":", err)
		return
	}
	resp.Body.Close()
	fmt.Printf("    %-12s reachable (HTTP %d)\n", name+":", resp.StatusCode)
}

func checkSecret(name, value string) {
	if value == "" {
		fmt.Printf("    %-12s (not configured)\n", name+":")
		return
	}
	masked := strings.Repeat("*", len(value))
	if len(value) > 8 {
		masked = value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
	}
	fmt.Printf("    %-12s %s\n", name+":", masked)
}
