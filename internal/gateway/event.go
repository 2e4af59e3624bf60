package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event is a parsed platform webhook.
type Event struct {
	Type    string
	AgentID string
	Prompt  string
}

var errMissingFields = errors.New("could not extract agent_id or prompt from webhook")

type rawEvent struct {
	Type     string          `json:"type"`
	Prompt   json.RawMessage `json:"prompt"`
	Response *struct {
		AgentID string `json:"agent_id"`
	} `json:"response"`
	Request *struct {
		Path string `json:"path"`
	} `json:"request"`
}

type promptPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseEvent extracts the agent ID and prompt from a webhook payload.
// message_sent events carry the agent in the response body;
// stream_started events carry it in the request path.
func ParseEvent(body []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	prompt, err := parsePrompt(raw.Prompt)
	if err != nil {
		return nil, err
	}

	var agentID string
	switch raw.Type {
	case "message_sent":
		if raw.Response != nil {
			agentID = raw.Response.AgentID
		}
	case "stream_started":
		if raw.Request != nil {
			agentID = agentIDFromPath(raw.Request.Path)
		}
	}

	if agentID == "" || prompt == "" {
		return nil, errMissingFields
	}
	return &Event{Type: raw.Type, AgentID: agentID, Prompt: prompt}, nil
}

// parsePrompt accepts both a plain string and the structured
// [{type:"text", text:"…"}] form streamed requests use.
func parsePrompt(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var parts []promptPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("parse prompt field: %w", err)
	}

	var b strings.Builder
	for _, p := range parts {
		if p.Type != "text" || p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

// agentIDFromPath pulls the segment after "agents" out of an API path
// like /v1/agents/agent-123/messages/stream. Segments without the
// agent- prefix are rejected; streamed paths can also address runs and
// templates.
func agentIDFromPath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg != "agents" {
			continue
		}
		if i+1 < len(segments) && strings.HasPrefix(segments[i+1], "agent-") {
			return segments[i+1]
		}
		return ""
	}
	return ""
}
