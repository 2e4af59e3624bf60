package gateway

import (
	"testing"
)

func TestParseEventMessageSent(t *testing.T) {
	body := []byte(`{
		"type": "message_sent",
		"prompt": "what changed in the cluster?",
		"response": {"agent_id": "agent-alpha"}
	}`)

	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != "message_sent" || ev.AgentID != "agent-alpha" {
		t.Errorf("event = %+v", ev)
	}
	if ev.Prompt != "what changed in the cluster?" {
		t.Errorf("prompt = %q", ev.Prompt)
	}
}

func TestParseEventStreamStarted(t *testing.T) {
	body := []byte(`{
		"type": "stream_started",
		"prompt": [
			{"type": "text", "text": "first part"},
			{"type": "image", "text": "ignored"},
			{"type": "text", "text": "second part"}
		],
		"request": {"path": "/v1/agents/agent-beta/messages/stream"}
	}`)

	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.AgentID != "agent-beta" {
		t.Errorf("agent = %q", ev.AgentID)
	}
	if ev.Prompt != "first part second part" {
		t.Errorf("prompt = %q", ev.Prompt)
	}
}

func TestParseEventRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing agent", `{"type":"message_sent","prompt":"hello"}`},
		{"missing prompt", `{"type":"message_sent","response":{"agent_id":"agent-a"}}`},
		{"unknown type", `{"type":"heartbeat","prompt":"hello"}`},
		{"path without agents segment", `{"type":"stream_started","prompt":"x","request":{"path":"/v1/runs/run-1"}}`},
		{"path segment without prefix", `{"type":"stream_started","prompt":"x","request":{"path":"/v1/agents/templates/messages"}}`},
		{"not json", `"pro`},
		{"whitespace prompt", `{"type":"message_sent","prompt":"   ","response":{"agent_id":"agent-a"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tc.body)); err == nil {
				t.Errorf("ParseEvent(%s) must fail", tc.body)
			}
		})
	}
}

func TestAgentIDFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/v1/agents/agent-1/messages/stream", "agent-1"},
		{"/v1/agents/agent-1", "agent-1"},
		{"/v1/agents", ""},
		{"/v1/agents/run-77/messages", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := agentIDFromPath(tc.path); got != tc.want {
			t.Errorf("agentIDFromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
