package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Sources bundles the context adapters behind one fan-out call.
type Sources struct {
	Graphiti *Graphiti
	Arxiv    *Arxiv
}

// Context runs the knowledge-graph search and, when the prompt
// triggers it, the arXiv search concurrently, then merges the rendered
// strings. Adapters never return errors; a failed source contributes
// its own error message so the block records what happened.
func (s *Sources) Context(ctx context.Context, prompt string) Result {
	var (
		graph Result
		arxiv Result
	)

	shouldArxiv, arxivQuery := s.Arxiv.ShouldTrigger(prompt)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graph = s.Graphiti.Search(gctx, prompt)
		return nil
	})
	if shouldArxiv {
		g.Go(func() error {
			arxiv = s.Arxiv.Search(gctx, arxivQuery)
			return nil
		})
	}
	_ = g.Wait()

	if !graph.Success {
		slog.Debug("knowledge-graph search produced no context", "detail", graph.Context)
	}

	if shouldArxiv && arxiv.Context != "" {
		return Result{
			Context: graph.Context + "\n\n" + arxiv.Context,
			Success: graph.Success || arxiv.Success,
		}
	}
	return graph
}
