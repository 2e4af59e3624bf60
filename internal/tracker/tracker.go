// Package tracker watches for agents the gateway has never seen
// before. First sight of an agent kicks off a background side-effect:
// a chat notification plus a directory registration. Each agent fires
// at most once per process.
package tracker

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oculairmedia/context-gateway/internal/enrich"
	"github.com/oculairmedia/context-gateway/internal/letta"
)

const (
	workerCount = 4
	queueSize   = 64
)

// AgentFetcher resolves agent details from the platform.
type AgentFetcher interface {
	GetAgent(ctx context.Context, agentID string) (*letta.Agent, error)
}

// Registrar writes new agents into the directory.
type Registrar interface {
	Register(ctx context.Context, reg enrich.Registration) error
}

// Notifier announces new agents to the chat service.
type Notifier interface {
	NotifyNewAgent(ctx context.Context, agentID string, seen time.Time) error
}

// Tracker keeps the set of known agent IDs and dispatches the
// first-sight side-effect through a bounded worker pool.
type Tracker struct {
	mu    sync.Mutex
	known map[string]struct{}

	agents   AgentFetcher
	registry Registrar
	notifier Notifier

	queue chan string
	wg    sync.WaitGroup
}

// New builds a tracker and starts its workers. Call Close to drain
// them on shutdown.
func New(agents AgentFetcher, registry Registrar, notifier Notifier) *Tracker {
	t := &Tracker{
		known:    make(map[string]struct{}),
		agents:   agents,
		registry: registry,
		notifier: notifier,
		queue:    make(chan string, queueSize),
	}
	for i := 0; i < workerCount; i++ {
		t.wg.Add(1)
		go t.worker()
	}
	return t
}

// Track records a sighting. Returns true when this is the first time
// the agent has been seen. IDs without the agent- prefix are ignored;
// the platform also emits run and message identifiers through the same
// webhook fields.
func (t *Tracker) Track(agentID string) bool {
	if !strings.HasPrefix(agentID, "agent-") {
		return false
	}

	t.mu.Lock()
	if _, seen := t.known[agentID]; seen {
		t.mu.Unlock()
		return false
	}
	t.known[agentID] = struct{}{}
	t.mu.Unlock()

	select {
	case t.queue <- agentID:
	default:
		slog.Warn("agent tracker queue full, dropping side-effect", "agent_id", agentID)
	}
	return true
}

func (t *Tracker) worker() {
	defer t.wg.Done()
	for agentID := range t.queue {
		t.firstSight(agentID)
	}
}

// firstSight runs the side-effect chain serially: notify the chat
// service, then register the agent in the directory. Both are
// best-effort.
func (t *Tracker) firstSight(agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seen := time.Now()
	if t.notifier != nil {
		if err := t.notifier.NotifyNewAgent(ctx, agentID, seen); err != nil {
			slog.Warn("new-agent notification failed", "agent_id", agentID, "error", err)
		}
	}

	if t.agents == nil || t.registry == nil {
		return
	}
	agent, err := t.agents.GetAgent(ctx, agentID)
	if err != nil {
		slog.Warn("agent lookup failed, skipping registration", "agent_id", agentID, "error", err)
		return
	}
	reg := enrich.NewRegistration(agentID, agent.Name, agent.System, seen)
	if err := t.registry.Register(ctx, reg); err != nil {
		slog.Warn("agent registration failed", "agent_id", agentID, "error", err)
		return
	}
	slog.Info("registered new agent", "agent_id", agentID, "name", reg.Name)
}

// Known returns the sorted known agent IDs.
func (t *Tracker) Known() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.known))
	for id := range t.known {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of known agents.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.known)
}

// Reset clears the known set and returns how many agents were removed.
func (t *Tracker) Reset() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := len(t.known)
	t.known = make(map[string]struct{})
	return removed
}

// Close stops accepting side-effects and waits for in-flight ones.
func (t *Tracker) Close() {
	close(t.queue)
	t.wg.Wait()
}
