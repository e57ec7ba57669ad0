package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartbridge/sync/internal/domain/catalog"
	"github.com/cartbridge/sync/internal/infrastructure/platform"
)

const testImageBase = "https://legacy.example.com/image"

func newTestOrchestrator(api *fakePlatform, src *fakeSource, locationID string) *Orchestrator {
	log := testLogger()
	resolver := NewResolver(api, src.categories, log)
	inventory := NewInventorySynchronizer(api, locationID, log)
	return NewOrchestrator(src, api, resolver, inventory, "usd", testImageBase, log)
}

func stockpot() catalog.SourceProduct {
	return catalog.SourceProduct{
		ID:           42,
		Model:        "SP-40",
		Quantity:     12,
		Price:        decimal.NewFromInt(199),
		Name:         "Steel &amp; Copper Stockpot",
		Description:  "<p>Brushed &amp; polished.</p>",
		Tags:         "steel, oven-safe",
		TypeHint:     "Cookware",
		Image:        "catalog/pot.jpg",
		DateAdded:    time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC),
		DateModified: time.Date(2024, 7, 15, 9, 30, 0, 0, time.UTC),
	}
}

func stockpotSource() *fakeSource {
	return &fakeSource{
		products: []catalog.SourceProduct{stockpot()},
		groups:   map[int][]catalog.OptionGroup{},
		categoryIDs: map[int][]int{
			42: {20},
		},
		images: map[int][]string{
			42: {"catalog/pot-side.jpg", "catalog/pot.jpg"},
		},
		categories: threeLevelTree(),
	}
}

func TestSyncProductCreatesNewProduct(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	assert.Equal(t, 1, api.productCreates)
	assert.Zero(t, api.productUpdates)

	in := api.lastProductInput
	assert.Equal(t, "Steel & Copper Stockpot", in.Title)
	assert.Equal(t, "steel-copper-stockpot-42", in.Handle)
	assert.Equal(t, "Brushed & polished.", in.Description)
	assert.Equal(t, "published", in.Status)

	// No option groups: one synthetic default option and one variant keyed
	// by the model.
	require.Len(t, in.Options, 1)
	assert.Equal(t, "Default", in.Options[0].Title)
	require.Len(t, in.Variants, 1)
	assert.Equal(t, "SP-40", in.Variants[0].SKU)
	require.Len(t, in.Variants[0].Prices, 1)
	assert.Equal(t, int64(19900), in.Variants[0].Prices[0].Amount)
	assert.Equal(t, "usd", in.Variants[0].Prices[0].CurrencyCode)
	assert.True(t, in.Variants[0].Manage)

	// Primary image first, extras deduplicated against it.
	require.Len(t, in.Images, 2)
	assert.Equal(t, testImageBase+"/catalog/pot.jpg", in.Images[0].URL)
	assert.Equal(t, testImageBase+"/catalog/pot-side.jpg", in.Images[1].URL)

	// Taxonomy links resolved through the live resolver.
	require.Len(t, in.CategoryIDs, 1)
	assert.Equal(t, api.categoriesByHandle["kitchen"].ID, in.CategoryIDs[0])
	assert.Equal(t, api.collectionsByHandle["home"].ID, in.CollectionID)
	assert.NotEmpty(t, in.TypeID)
	assert.Len(t, in.TagIDs, 2)

	assert.Equal(t, 42, in.Metadata["legacy_id"])
	assert.Equal(t, "SP-40", in.Metadata["legacy_model"])
	assert.Equal(t, "199", in.Metadata["legacy_price"])
	assert.Equal(t, "2019-03-01T10:00:00Z", in.Metadata["legacy_date_added"])
	assert.NotContains(t, in.Metadata, "legacy_special_price")
}

func TestSyncProductSecondRunTakesUpdatePath(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))
	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	assert.Equal(t, 1, api.productCreates)
	assert.Equal(t, 1, api.productUpdates)
	// The existing variant is matched by SKU and updated in place.
	assert.Equal(t, 1, api.variantUpdates)
	assert.Zero(t, api.variantCreates)

	// Re-issued options carry the existing option ids.
	require.Len(t, api.lastUpdateInput.Options, 1)
	assert.NotEmpty(t, api.lastUpdateInput.Options[0].ID)
}

func TestSyncProductUpdateMergesMetadata(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	// An operator annotated the product between runs.
	id := api.productByHandle["steel-copper-stockpot-42"]
	api.products[id].Metadata["curator_note"] = "front page"

	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	meta := api.lastUpdateInput.Metadata
	assert.Equal(t, "front page", meta["curator_note"])
	assert.Equal(t, 42, meta["legacy_id"])
	// Source-derived fields are always overwritten on update.
	assert.Equal(t, "Brushed & polished.", api.lastUpdateInput.Description)
}

func TestSyncProductExpandsOptionMatrix(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	src.groups[42] = []catalog.OptionGroup{
		{ID: 1, Name: "Size", Type: "select", Values: []catalog.OptionValue{
			{ID: 11, Name: "Small"},
			{ID: 12, Name: "Large", PriceDelta: decimal.NewFromInt(50)},
		}},
		{ID: 2, Name: "Colour", Type: "radio", Values: []catalog.OptionValue{
			{ID: 21, Name: "Red"},
			{ID: 22, Name: "Blue"},
			{ID: 23, Name: "Blue"}, // duplicated value name in the source
		}},
	}
	o := newTestOrchestrator(api, src, "loc_1")

	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	in := api.lastProductInput
	require.Len(t, in.Options, 2)
	assert.Equal(t, "Size", in.Options[0].Title)
	assert.Equal(t, []string{"Red", "Blue"}, in.Options[1].Values)

	// The duplicated Blue row collapses, so the matrix is 2x2, and every
	// variant in the payload chooses values the options declare.
	require.Len(t, in.Variants, 4)
	assert.Equal(t, "SP-40-SMALL-RED", in.Variants[0].SKU)
	assert.Equal(t, int64(24900), in.Variants[2].Prices[0].Amount)

	seen := make(map[string]struct{})
	for _, v := range in.Variants {
		_, dup := seen[v.SKU]
		require.False(t, dup, "duplicate sku %q", v.SKU)
		seen[v.SKU] = struct{}{}
	}
}

func TestSyncProductVariantReconcileCreatesNewSKUs(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")
	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	// A size option appears in the source after the first run.
	src.groups[42] = []catalog.OptionGroup{
		{ID: 1, Name: "Size", Type: "select", Values: []catalog.OptionValue{
			{ID: 11, Name: "Small"},
			{ID: 12, Name: "Large"},
		}},
	}
	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	assert.Equal(t, 2, api.variantCreates)
	assert.Zero(t, api.variantUpdates)

	_, ok := api.variantBySKU("steel-copper-stockpot-42", "SP-40-SMALL")
	assert.True(t, ok)
}

func TestSyncProductSubmitsSalePrices(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	p := stockpot()
	p.SpecialPrice = decimal.NewNullDecimal(decimal.RequireFromString("149.5"))

	require.NoError(t, o.SyncProduct(context.Background(), p))

	v, ok := api.variantBySKU("steel-copper-stockpot-42", "SP-40")
	require.True(t, ok)
	prices := api.priceSetPrices[v.PriceSetID]
	require.Len(t, prices, 1)
	assert.Equal(t, int64(14950), prices[0].Amount)
	assert.Equal(t, "usd", prices[0].CurrencyCode)

	assert.Equal(t, "149.5", api.lastProductInput.Metadata["legacy_special_price"])
}

func TestSyncProductCreateFailure(t *testing.T) {
	api := newFakePlatform()
	api.createProductErr = errors.New("validation rejected")
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	err := o.SyncProduct(context.Background(), stockpot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create product")
}

func TestSyncProductWritesInventoryLevels(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	require.NoError(t, o.SyncProduct(context.Background(), stockpot()))

	v, ok := api.variantBySKU("steel-copper-stockpot-42", "SP-40")
	require.True(t, ok)
	require.Len(t, v.InventoryItems, 1)
	assert.Equal(t, 12, api.levels[v.InventoryItems[0].InventoryItemID+"/loc_1"])
	assert.Equal(t, 1, api.levelCreates)
	assert.Zero(t, api.levelUpdates)
}

func TestSyncProductDimensions(t *testing.T) {
	api := newFakePlatform()
	src := stockpotSource()
	o := newTestOrchestrator(api, src, "loc_1")

	p := stockpot()
	p.Weight = decimal.NewNullDecimal(decimal.RequireFromString("2500.4"))

	require.NoError(t, o.SyncProduct(context.Background(), p))

	require.NotNil(t, api.lastProductInput.Weight)
	assert.Equal(t, int64(2500), *api.lastProductInput.Weight)
	assert.Nil(t, api.lastProductInput.Height)
	assert.Equal(t, "2500.4", api.lastProductInput.Metadata["legacy_weight"])
}

func TestOptionInputsSyntheticDefault(t *testing.T) {
	opts := optionInputs(nil)
	require.Len(t, opts, 1)
	assert.Equal(t, catalog.DefaultOptionTitle, opts[0].Title)
	assert.Equal(t, []string{catalog.DefaultOptionTitle}, opts[0].Values)
}

func TestReuseOptionIDs(t *testing.T) {
	existing := []platform.ProductOption{
		{ID: "opt_1", Title: "Size"},
	}
	out := reuseOptionIDs([]platform.OptionInput{
		{Title: "size", Values: []string{"Small"}},
		{Title: "Colour", Values: []string{"Red"}},
	}, existing)

	require.Len(t, out, 2)
	assert.Equal(t, "opt_1", out[0].ID)
	assert.Empty(t, out[1].ID)
}
