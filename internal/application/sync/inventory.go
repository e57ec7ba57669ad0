package sync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cartbridge/sync/internal/domain/catalog"
	"github.com/cartbridge/sync/internal/infrastructure/platform"
)

// InventoryAPI is the slice of the platform client used for stock levels.
type InventoryAPI interface {
	CreateInventoryLevel(ctx context.Context, inventoryItemID, locationID string, quantity int) error
	UpdateInventoryLevel(ctx context.Context, inventoryItemID, locationID string, quantity int) error
}

// InventorySynchronizer pushes source stock quantities to one stock location.
// It optimistically creates the location level and falls back to an update
// when the level already exists; a failed variant never blocks its siblings.
type InventorySynchronizer struct {
	api        InventoryAPI
	locationID string
	log        *zap.Logger

	warnedNoLocation bool
}

// NewInventorySynchronizer wires the stock-level phase. An empty locationID
// disables the phase entirely.
func NewInventorySynchronizer(api InventoryAPI, locationID string, log *zap.Logger) *InventorySynchronizer {
	return &InventorySynchronizer{
		api:        api,
		locationID: locationID,
		log:        log.Named("inventory"),
	}
}

// SyncLevels writes each draft's quantity against the refreshed product's
// variant directory, matching by SKU. Each level is independent: a missing
// inventory linkage or a failed write is logged and skipped.
func (s *InventorySynchronizer) SyncLevels(ctx context.Context, detail *platform.Product, drafts []catalog.VariantDraft, log *zap.Logger) {
	if s.locationID == "" {
		if !s.warnedNoLocation {
			s.log.Warn("no stock location configured, skipping inventory synchronization")
			s.warnedNoLocation = true
		}
		return
	}

	bySKU := make(map[string]platform.Variant, len(detail.Variants))
	for _, v := range detail.Variants {
		bySKU[v.SKU] = v
	}

	for _, d := range drafts {
		v, ok := bySKU[d.SKU]
		if !ok {
			log.Warn("no variant found for inventory level", zap.String("sku", d.SKU))
			continue
		}
		if len(v.InventoryItems) == 0 {
			log.Warn("variant has no inventory item", zap.String("sku", d.SKU))
			continue
		}

		itemID := v.InventoryItems[0].InventoryItemID
		err := s.api.CreateInventoryLevel(ctx, itemID, s.locationID, d.Quantity)
		if errors.Is(err, platform.ErrConflict) {
			err = s.api.UpdateInventoryLevel(ctx, itemID, s.locationID, d.Quantity)
		}
		if err != nil {
			log.Warn("inventory level write failed", zap.String("sku", d.SKU), zap.Error(err))
		}
	}
}
