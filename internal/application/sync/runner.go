package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartbridge/sync/internal/domain/catalog"
)

// SourceStore is the read side of the legacy catalog consumed by a run.
type SourceStore interface {
	FetchProducts(ctx context.Context, limit, offset int) ([]catalog.SourceProduct, error)
	FetchOptionGroups(ctx context.Context, productID int) ([]catalog.OptionGroup, error)
	FetchProductCategoryIDs(ctx context.Context, productID int) ([]int, error)
	FetchProductImages(ctx context.Context, productID int) ([]string, error)
	FetchCategories(ctx context.Context) (map[int]catalog.SourceCategory, error)
}

// PlatformAPI is the full write surface a run needs on the target platform.
type PlatformAPI interface {
	TaxonomyAPI
	ProductAPI
	InventoryAPI
}

// ProductFailure records one product the run could not sync.
type ProductFailure struct {
	SourceID int
	Name     string
	Err      error
}

// RunResult summarizes a completed run.
type RunResult struct {
	Total    int
	Synced   int
	Failed   int
	Failures []ProductFailure
	Duration time.Duration
}

// Runner pages through the source catalog and syncs each product in order.
// Products are processed sequentially; a product failure is recorded and the
// run moves on, while extractor failures abort the run since the remaining
// pages cannot be trusted.
type Runner struct {
	source SourceStore
	api    PlatformAPI

	currency     string
	locationID   string
	imageBaseURL string
	batchSize    int
	log          *zap.Logger
}

// NewRunner wires a run over the source store and the platform client.
func NewRunner(source SourceStore, api PlatformAPI, currency, locationID, imageBaseURL string, batchSize int, log *zap.Logger) *Runner {
	return &Runner{
		source:       source,
		api:          api,
		currency:     currency,
		locationID:   locationID,
		imageBaseURL: imageBaseURL,
		batchSize:    batchSize,
		log:          log,
	}
}

// Run executes one full synchronization pass. The category tree is loaded
// up front so the taxonomy resolver can walk ancestor chains without further
// source queries; product pages are then fetched at a fixed batch size until
// an empty page ends the run.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	log := r.log.With(zap.String("run_id", uuid.NewString()))
	log.Info("synchronization run starting", zap.Int("batch_size", r.batchSize))

	tree, err := r.source.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch category tree: %w", err)
	}

	resolver := NewResolver(r.api, tree, log)
	inventory := NewInventorySynchronizer(r.api, r.locationID, log)
	orchestrator := NewOrchestrator(r.source, r.api, resolver, inventory, r.currency, r.imageBaseURL, log)

	result := &RunResult{}
	for offset := 0; ; {
		page, err := r.source.FetchProducts(ctx, r.batchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch products at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		for _, p := range page {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			result.Total++
			if err := orchestrator.SyncProduct(ctx, p); err != nil {
				result.Failed++
				result.Failures = append(result.Failures, ProductFailure{
					SourceID: p.ID,
					Name:     catalog.DecodeText(p.Name),
					Err:      err,
				})
				log.Error("product sync failed",
					zap.Int("source_id", p.ID),
					zap.String("name", catalog.DecodeText(p.Name)),
					zap.Error(err))
				continue
			}
			result.Synced++
		}

		offset += len(page)
	}

	result.Duration = time.Since(start)
	log.Info("synchronization run finished",
		zap.Int("total", result.Total),
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))
	return result, nil
}
