package schema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Source supplies the flat asset-type records of a team and the number of
// assets referencing an asset type.
type Source interface {
	ListAssetTypes(ctx context.Context, teamID string) ([]models.AssetType, error)
	CountAssets(ctx context.Context, teamID, assetTypeID string) (int, error)
}

// BuildObserver is notified after every tree build.
type BuildObserver interface {
	ObserveTreeBuild(d time.Duration, nodes int)
}

// Resolver builds schema trees from a Source and validates hierarchy
// mutations against them. Every call reads fresh records; nothing is cached.
type Resolver struct {
	src      Source
	logger   *slog.Logger
	observer BuildObserver
}

// NewResolver creates a Resolver. observer may be nil.
func NewResolver(src Source, logger *slog.Logger, observer BuildObserver) *Resolver {
	return &Resolver{src: src, logger: logger, observer: observer}
}

// Tree builds the complete asset-type forest of a team.
func (r *Resolver) Tree(ctx context.Context, teamID string) (*Tree, error) {
	start := time.Now()
	records, err := r.src.ListAssetTypes(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("schema: list asset types: %w", err)
	}
	tree := BuildTree(records, nil)
	if ids := tree.Unreachable(); len(ids) > 0 {
		r.logger.Warn("schema: records outside the forest skipped",
			slog.String("team_id", teamID),
			slog.Any("ids", ids))
	}
	if r.observer != nil {
		r.observer.ObserveTreeBuild(time.Since(start), tree.Len())
	}
	return tree, nil
}

// ResolveByID builds the team's tree and returns the node with the given id.
func (r *Resolver) ResolveByID(ctx context.Context, teamID, id string) (*Node, error) {
	tree, err := r.Tree(ctx, teamID)
	if err != nil {
		return nil, err
	}
	n, ok := tree.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("asset type %s: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

// CheckParent validates attaching nodeID (empty when creating) below
// parentID within the team.
func (r *Resolver) CheckParent(ctx context.Context, teamID, nodeID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	tree, err := r.Tree(ctx, teamID)
	if err != nil {
		return err
	}
	return tree.CheckParent(nodeID, parentID)
}

// DeletePlan describes how a node is spliced out of the hierarchy: its
// direct children move to NewParentID.
type DeletePlan struct {
	Node        *Node
	NewParentID *string
	ChildIDs    []string
}

// PlanDelete checks that no asset references id and returns the splice-out
// plan for it.
func (r *Resolver) PlanDelete(ctx context.Context, teamID, id string) (*DeletePlan, error) {
	n, err := r.ResolveByID(ctx, teamID, id)
	if err != nil {
		return nil, err
	}
	count, err := r.src.CountAssets(ctx, teamID, id)
	if err != nil {
		return nil, fmt.Errorf("schema: count assets: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %d assets use asset type %q", apperr.ErrInUse, count, n.Name)
	}
	plan := &DeletePlan{Node: n, NewParentID: n.ParentID}
	for _, c := range n.Children {
		plan.ChildIDs = append(plan.ChildIDs, c.ID)
	}
	return plan, nil
}
