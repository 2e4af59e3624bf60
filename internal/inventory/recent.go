package inventory

import (
	"strings"
	"sync"
	"time"
)

const (
	// maxRecorded caps the per-agent attachment history.
	maxRecorded = 10

	// RecentShown is how many attachments the snapshot's Recently
	// Attached section lists.
	RecentShown = 3
)

// Attachment is one recorded tool attachment.
type Attachment struct {
	ToolName  string
	ToolID    string
	Reason    string
	Score     float64
	Timestamp time.Time
}

// Recorder keeps the newest-first attachment history per agent.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	byAgent map[string][]Attachment
}

func NewRecorder() *Recorder {
	return &Recorder{byAgent: make(map[string][]Attachment)}
}

// Record prepends an attachment and trims the history to maxRecorded.
func (r *Recorder) Record(agentID string, a Attachment) {
	if agentID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	history := append([]Attachment{a}, r.byAgent[agentID]...)
	if len(history) > maxRecorded {
		history = history[:maxRecorded]
	}
	r.byAgent[agentID] = history
}

// Recent returns up to limit newest-first attachments for the agent.
func (r *Recorder) Recent(agentID string, limit int) []Attachment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := r.byAgent[agentID]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	out := make([]Attachment, len(history))
	copy(out, history)
	return out
}

// AttachReason derives the recorded reason from the triggering prompt:
// "auto" plus the first three whitespace tokens, lowercased.
func AttachReason(prompt string) string {
	if prompt == "" {
		return "auto"
	}
	tokens := strings.Fields(strings.ToLower(prompt))
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return "auto: '" + strings.Join(tokens, " ") + "'"
}
