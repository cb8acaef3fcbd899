package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/project-tracker/internal/store"
)

// reconcileParallelism bounds concurrent project recomputes.
const reconcileParallelism = 4

// Reconcile rebuilds every rollup of one project from its items and
// work logs.
func (s *Service) Reconcile(ctx context.Context, projectID string) error {
	if err := s.store.RecomputeProject(ctx, projectID); err != nil {
		return fmt.Errorf("reconciling project %s: %w", projectID, err)
	}
	return nil
}

// ReconcileAll rebuilds the rollups of every project and returns how many
// were processed.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	projects, err := s.store.GetProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileParallelism)
	for _, p := range projects {
		g.Go(func() error {
			return s.Reconcile(gctx, p.ID)
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("reconciliation failed", zap.Error(err))
		return 0, err
	}

	s.logger.Info("rollups reconciled", zap.Int("projects", len(projects)))
	return len(projects), nil
}
