package tracker

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

const matrixTimeout = 5 * time.Second

// MatrixNotifier posts new-agent announcements to the chat bridge.
type MatrixNotifier struct {
	url  string
	http *http.Client
}

func NewMatrixNotifier(cfg config.MatrixConfig) *MatrixNotifier {
	return &MatrixNotifier{
		url:  strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{Timeout: matrixTimeout},
	}
}

// NotifyNewAgent fires one short best-effort POST. The tracker logs
// and moves on if it fails.
func (m *MatrixNotifier) NotifyNewAgent(ctx context.Context, agentID string, seen time.Time) error {
	payload, err := json.Marshal(map[string]string{
		"agent_id":  agentID,
		"timestamp": seen.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("matrix: marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.url+"/webhook/new-agent", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("matrix: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("matrix: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpx.HTTPError{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("matrix: %s", string(respBody)),
		}
	}
	return nil
}
