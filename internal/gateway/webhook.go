package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oculairmedia/context-gateway/internal/inventory"
	"github.com/oculairmedia/context-gateway/internal/letta"
	"github.com/oculairmedia/context-gateway/internal/telemetry"
)

// maxWebhookBody caps the accepted payload size.
const maxWebhookBody = 1 << 20

// handleWebhook runs the full pipeline for one platform webhook. Only
// a malformed payload fails the request; every downstream step is
// best-effort and logged, and the platform always gets its 200 back so
// it never retries a side-effecting call.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := slog.With("request_id", requestID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("webhook pipeline panicked", "panic", rec)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
		}
	}()

	if !s.rateLimiter.Allow(clientKey(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "rate limit exceeded",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body"})
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		log.Warn("webhook rejected", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, span := s.tracer.Start(r.Context(), telemetry.SpanWebhook,
		attribute.String(telemetry.AttrRequestID, requestID),
		attribute.String(telemetry.AttrAgentID, event.AgentID),
		attribute.String(telemetry.AttrEventType, event.Type),
	)
	defer span.End()

	log = log.With("agent_id", event.AgentID, "event_type", event.Type)
	log.Info("webhook received", "prompt_len", len(event.Prompt))

	if s.tracker.Track(event.AgentID) {
		log.Info("new agent sighted")
	}

	// Context enrichment feeds the graphiti_context channel. The
	// adapters always render something, a failure message included, so
	// the block records what happened either way.
	enrichCtx, enrichSpan := s.tracer.Start(ctx, telemetry.SpanEnrich)
	enriched := s.sources.Context(enrichCtx, event.Prompt)
	enrichSpan.End()

	_, blockSpan := s.tracer.Start(ctx, telemetry.SpanBlockWrite,
		attribute.String(telemetry.AttrBlockLabel, "graphiti_context"))
	if _, err := s.letta.CreateOrUpdateBlock(ctx, event.AgentID, letta.BlockWrite{
		Label:    "graphiti_context",
		Value:    enriched.Context,
		Metadata: map[string]any{"source": "webhook", "event_type": event.Type},
	}); err != nil {
		log.Warn("graphiti_context block write failed", "error", err)
	}
	blockSpan.End()

	// Agent discovery feeds the available_agents channel.
	if event.Prompt != "" {
		agents := s.registry.Search(ctx, event.Prompt)
		_, err := s.letta.CreateOrUpdateBlock(ctx, event.AgentID, letta.BlockWrite{
			Label:    "available_agents",
			Value:    agents.Context,
			Metadata: map[string]any{"source": "agent_registry", "event_type": event.Type},
			Snapshot: s.config().Blocks.AgentsSnapshot,
		})
		if err != nil {
			log.Warn("available_agents block write failed", "error", err)
		}
	}

	s.attachTools(ctx, log, event)

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Context processed and tools attached",
	})
}

// attachTools asks the selector for tool matches, records the
// attachments, and refreshes the available_tools snapshot.
func (s *Server) attachTools(ctx context.Context, log *slog.Logger, event *Event) {
	selectCtx, span := s.tracer.Start(ctx, telemetry.SpanToolSelect)
	defer span.End()

	keepTools := []string{"*"}
	if findToolsID := s.letta.FindToolsID(selectCtx, event.AgentID); findToolsID != "" {
		keepTools = append(keepTools, findToolsID)
	}
	keepTools = append(keepTools, s.protectedToolIDs(selectCtx, event.AgentID)...)

	result, err := s.selector.Attach(selectCtx, event.Prompt, event.AgentID, keepTools)
	if err != nil {
		log.Warn("tool selection failed", "error", err)
		return
	}
	if !result.Success {
		log.Info("tool selector attached nothing")
		return
	}

	now := time.Now()
	reason := inventory.AttachReason(event.Prompt)
	for _, att := range result.Details.SuccessfulAttachments {
		s.recorder.Record(event.AgentID, inventory.Attachment{
			ToolName:  att.Name,
			ToolID:    att.ToolID,
			Reason:    reason,
			Score:     att.MatchScore,
			Timestamp: now,
		})
	}
	log.Info("tools attached",
		"attached", len(result.Details.SuccessfulAttachments),
		"detached", len(result.Details.DetachedTools),
		"preserved", len(result.Details.PreservedTools))

	s.writeInventory(ctx, log, event.AgentID)
}

// protectedToolIDs resolves configured protected tool names against
// the agent's current tools. Names the agent does not carry are
// skipped; the wildcard already preserves whatever is attached.
func (s *Server) protectedToolIDs(ctx context.Context, agentID string) []string {
	protected := s.config().Selector.ProtectedTools
	if len(protected) == 0 {
		return nil
	}
	tools, err := s.letta.AgentTools(ctx, agentID)
	if err != nil {
		slog.Warn("protected tool resolution failed", "agent_id", agentID, "error", err)
		return nil
	}

	byName := make(map[string]string, len(tools))
	for _, t := range tools {
		byName[t.Name] = t.ID
	}

	var ids []string
	for _, name := range protected {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// writeInventory re-renders the available_tools snapshot from the
// agent's post-attachment tool list.
func (s *Server) writeInventory(ctx context.Context, log *slog.Logger, agentID string) {
	invCtx, span := s.tracer.Start(ctx, telemetry.SpanToolInventory)
	defer span.End()

	tools, err := s.letta.AgentTools(invCtx, agentID)
	if err != nil {
		log.Warn("tool listing for inventory failed", "error", err)
		return
	}

	content := inventory.Render(tools, s.recorder.Recent(agentID, inventory.RecentShown), time.Now())
	if _, err := s.letta.WriteToolInventory(invCtx, agentID, content); err != nil {
		log.Warn("tool inventory write failed", "error", err)
	}
}
