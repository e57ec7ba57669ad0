package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cartbridge/sync/internal/domain/catalog"
	"github.com/cartbridge/sync/internal/infrastructure/platform"
)

// ProductAPI is the slice of the platform client the orchestrator consumes.
type ProductAPI interface {
	FindProductByHandle(ctx context.Context, handle string) (*platform.Product, error)
	GetProduct(ctx context.Context, id string) (*platform.Product, error)
	CreateProduct(ctx context.Context, in platform.CreateProductInput) (*platform.Product, error)
	UpdateProduct(ctx context.Context, id string, in platform.UpdateProductInput) (*platform.Product, error)
	CreateVariant(ctx context.Context, productID string, in platform.CreateVariantInput) error
	UpdateVariant(ctx context.Context, productID, variantID string, in platform.UpdateVariantInput) error
	AddPriceSetPrices(ctx context.Context, priceSetID string, prices []platform.PriceInput) error
}

// Orchestrator drives the per-product pipeline: taxonomy resolution, payload
// construction, create-or-update, variant reconciliation, deferred price-list
// prices, then inventory. A product-level failure aborts the rest of this
// product only; variant and inventory failures are contained even tighter.
type Orchestrator struct {
	source    SourceStore
	api       ProductAPI
	resolver  *Resolver
	inventory *InventorySynchronizer

	currency     string
	imageBaseURL string
	log          *zap.Logger
}

// NewOrchestrator wires the per-product pipeline.
func NewOrchestrator(source SourceStore, api ProductAPI, resolver *Resolver, inventory *InventorySynchronizer, currency, imageBaseURL string, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		source:       source,
		api:          api,
		resolver:     resolver,
		inventory:    inventory,
		currency:     currency,
		imageBaseURL: imageBaseURL,
		log:          log.Named("orchestrator"),
	}
}

// SyncProduct reconciles one source product into the target catalog. The
// returned error is a product-level failure; callers log it and move on to
// the next product.
func (o *Orchestrator) SyncProduct(ctx context.Context, p catalog.SourceProduct) error {
	name := catalog.DecodeText(p.Name)
	handle := catalog.ProductHandle(p.Name, p.ID)
	log := o.log.With(zap.Int("source_id", p.ID), zap.String("name", name), zap.String("handle", handle))

	groups, err := o.source.FetchOptionGroups(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("fetch option groups: %w", err)
	}
	categoryIDs, err := o.source.FetchProductCategoryIDs(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("fetch category ids: %w", err)
	}
	extraImages, err := o.source.FetchProductImages(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("fetch images: %w", err)
	}

	// Taxonomy links are each independently optional; unresolved entries are
	// already logged by the resolver and simply omitted here.
	targetCategoryIDs := o.resolver.ResolveCategories(ctx, categoryIDs)
	tagIDs := o.resolver.ResolveTags(ctx, p.Tags)
	typeID := o.resolver.ResolveType(ctx, p.TypeHint)
	collectionID := o.resolver.ResolveCollection(ctx, categoryIDs)

	drafts := catalog.BuildVariants(p, groups)
	options := optionInputs(groups)
	images := o.imageInputs(p, extraImages)
	metadata := provenanceMetadata(p)

	existing, err := o.api.FindProductByHandle(ctx, handle)
	if err != nil {
		return fmt.Errorf("lookup product by handle: %w", err)
	}

	var detail *platform.Product
	if existing == nil {
		detail, err = o.createProduct(ctx, p, name, handle, options, drafts, images, targetCategoryIDs, collectionID, typeID, tagIDs, metadata)
	} else {
		detail, err = o.updateProduct(ctx, existing.ID, p, name, options, drafts, images, targetCategoryIDs, collectionID, typeID, tagIDs, metadata, log)
	}
	if err != nil {
		return err
	}

	o.applySalePrices(ctx, detail, drafts, log)
	o.inventory.SyncLevels(ctx, detail, drafts, log)
	return nil
}

// createProduct submits a single create call carrying the full variant list;
// nested variant creation is only accepted on initial creation. The created
// product is immediately re-fetched for authoritative variant and option ids.
func (o *Orchestrator) createProduct(ctx context.Context, p catalog.SourceProduct, name, handle string, options []platform.OptionInput, drafts []catalog.VariantDraft, images []platform.ProductImageInput, categoryIDs []string, collectionID, typeID string, tagIDs []string, metadata map[string]any) (*platform.Product, error) {
	variants := make([]platform.CreateVariantInput, len(drafts))
	for i, d := range drafts {
		variants[i] = variantCreateInput(d, o.currency)
	}

	created, err := o.api.CreateProduct(ctx, platform.CreateProductInput{
		Title:        name,
		Handle:       handle,
		Description:  catalog.CleanDescription(p.Description),
		Status:       "published",
		Images:       images,
		Options:      options,
		Variants:     variants,
		CategoryIDs:  categoryIDs,
		CollectionID: collectionID,
		TypeID:       typeID,
		TagIDs:       tagIDs,
		Weight:       dimensionPtr(p.Weight),
		Length:       dimensionPtr(p.Length),
		Width:        dimensionPtr(p.Width),
		Height:       dimensionPtr(p.Height),
		Metadata:     metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	detail, err := o.api.GetProduct(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh created product: %w", err)
	}
	return detail, nil
}

// updateProduct overwrites product-level fields, merges metadata (new keys
// win, unrelated existing keys survive), re-issues options reusing existing
// option ids by title, then reconciles each draft against the existing
// variant directory by SKU.
func (o *Orchestrator) updateProduct(ctx context.Context, id string, p catalog.SourceProduct, name string, options []platform.OptionInput, drafts []catalog.VariantDraft, images []platform.ProductImageInput, categoryIDs []string, collectionID, typeID string, tagIDs []string, metadata map[string]any, log *zap.Logger) (*platform.Product, error) {
	current, err := o.api.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch current product: %w", err)
	}

	_, err = o.api.UpdateProduct(ctx, id, platform.UpdateProductInput{
		Title:        name,
		Description:  catalog.CleanDescription(p.Description),
		Status:       "published",
		Images:       images,
		Options:      reuseOptionIDs(options, current.Options),
		CategoryIDs:  categoryIDs,
		CollectionID: collectionID,
		TypeID:       typeID,
		TagIDs:       tagIDs,
		Weight:       dimensionPtr(p.Weight),
		Length:       dimensionPtr(p.Length),
		Width:        dimensionPtr(p.Width),
		Height:       dimensionPtr(p.Height),
		Metadata:     mergeMetadata(current.Metadata, metadata),
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	existingBySKU := make(map[string]platform.Variant, len(current.Variants))
	for _, v := range current.Variants {
		existingBySKU[v.SKU] = v
	}

	// A single variant failure skips that variant only; siblings proceed.
	for _, d := range drafts {
		if v, ok := existingBySKU[d.SKU]; ok {
			err = o.api.UpdateVariant(ctx, id, v.ID, platform.UpdateVariantInput{
				Title:   d.Title,
				Options: d.Options,
				Prices:  []platform.PriceInput{{Amount: d.PriceMinor, CurrencyCode: o.currency}},
			})
		} else {
			err = o.api.CreateVariant(ctx, id, variantCreateInput(d, o.currency))
		}
		if err != nil {
			log.Warn("variant reconcile failed", zap.String("sku", d.SKU), zap.Error(err))
		}
	}

	detail, err := o.api.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh updated product: %w", err)
	}
	return detail, nil
}

// applySalePrices submits deferred price-list prices against each variant's
// resolved price set. The initial payload only accepts base prices, so sale
// prices are a second phase after authoritative ids exist.
func (o *Orchestrator) applySalePrices(ctx context.Context, detail *platform.Product, drafts []catalog.VariantDraft, log *zap.Logger) {
	bySKU := make(map[string]platform.Variant, len(detail.Variants))
	for _, v := range detail.Variants {
		bySKU[v.SKU] = v
	}

	for _, d := range drafts {
		if d.SalePriceMinor == nil {
			continue
		}
		v, ok := bySKU[d.SKU]
		if !ok || v.PriceSetID == "" {
			log.Warn("no price set resolved for sale price", zap.String("sku", d.SKU))
			continue
		}
		err := o.api.AddPriceSetPrices(ctx, v.PriceSetID, []platform.PriceInput{
			{Amount: *d.SalePriceMinor, CurrencyCode: o.currency},
		})
		if err != nil {
			log.Warn("sale price submit failed", zap.String("sku", d.SKU), zap.Error(err))
		}
	}
}

// imageInputs orders the primary image first and de-duplicates it against
// the separately queried full image list, resolving every path to an
// absolute URL.
func (o *Orchestrator) imageInputs(p catalog.SourceProduct, extra []string) []platform.ProductImageInput {
	seen := make(map[string]struct{})
	var out []platform.ProductImageInput
	add := func(path string) {
		u := catalog.AbsoluteImageURL(o.imageBaseURL, path)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		out = append(out, platform.ProductImageInput{URL: u})
	}

	add(p.Image)
	for _, path := range extra {
		add(path)
	}
	return out
}

// optionInputs builds the option definitions: one synthetic Default/Default
// pair when no real groups exist, else one entry per active group with its
// de-duplicated value list.
func optionInputs(groups []catalog.OptionGroup) []platform.OptionInput {
	var out []platform.OptionInput
	for _, g := range groups {
		vals := g.DedupedValues()
		if len(vals) == 0 {
			continue
		}
		values := make([]string, len(vals))
		for i, v := range vals {
			values[i] = catalog.DecodeText(v.Name)
		}
		out = append(out, platform.OptionInput{Title: catalog.DecodeText(g.Name), Values: values})
	}

	if len(out) == 0 {
		out = []platform.OptionInput{{Title: catalog.DefaultOptionTitle, Values: []string{catalog.DefaultOptionTitle}}}
	}
	return out
}

// reuseOptionIDs attaches existing option ids by title so re-issuing options
// on update does not create duplicate definitions.
func reuseOptionIDs(options []platform.OptionInput, existing []platform.ProductOption) []platform.OptionInput {
	byTitle := make(map[string]string, len(existing))
	for _, opt := range existing {
		byTitle[strings.ToLower(opt.Title)] = opt.ID
	}
	out := make([]platform.OptionInput, len(options))
	for i, opt := range options {
		if id, ok := byTitle[strings.ToLower(opt.Title)]; ok {
			opt.ID = id
		}
		out[i] = opt
	}
	return out
}

// mergeMetadata overlays fresh provenance onto the existing metadata bag:
// new keys win on conflict, unrelated existing keys are preserved.
func mergeMetadata(existing, fresh map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(fresh))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	return merged
}

// provenanceMetadata embeds the raw legacy values so every synced field can
// be traced back to its source.
func provenanceMetadata(p catalog.SourceProduct) map[string]any {
	meta := map[string]any{
		"legacy_id":              p.ID,
		"legacy_model":           p.Model,
		"legacy_sku":             p.SKU,
		"legacy_manufacturer":    p.Manufacturer,
		"legacy_tags":            p.Tags,
		"legacy_categories":      strings.Join(catalog.SplitMultiValue(p.CategoryNames, "\n"), ", "),
		"legacy_collections":     strings.Join(catalog.SplitMultiValue(p.CollectionNames, "\n"), ", "),
		"legacy_price":           p.Price.String(),
		"legacy_effective_price": p.EffectivePrice().String(),
		"legacy_date_added":      p.DateAdded.UTC().Format(time.RFC3339),
		"legacy_date_modified":   p.DateModified.UTC().Format(time.RFC3339),
	}
	if p.SpecialPrice.Valid {
		meta["legacy_special_price"] = p.SpecialPrice.Decimal.String()
	}
	putDimension(meta, "legacy_weight", p.Weight)
	putDimension(meta, "legacy_length", p.Length)
	putDimension(meta, "legacy_width", p.Width)
	putDimension(meta, "legacy_height", p.Height)
	return meta
}

func putDimension(meta map[string]any, key string, d decimal.NullDecimal) {
	if d.Valid {
		meta[key] = d.Decimal.String()
	}
}

func variantCreateInput(d catalog.VariantDraft, currency string) platform.CreateVariantInput {
	return platform.CreateVariantInput{
		Title:   d.Title,
		SKU:     d.SKU,
		Options: d.Options,
		Prices:  []platform.PriceInput{{Amount: d.PriceMinor, CurrencyCode: currency}},
		Weight:  dimensionPtr(d.Weight),
		Length:  dimensionPtr(d.Length),
		Width:   dimensionPtr(d.Width),
		Height:  dimensionPtr(d.Height),
		Manage:  true,
	}
}

// dimensionPtr rounds a nullable decimal dimension to the platform's integer
// unit; nil when the source value is absent.
func dimensionPtr(d decimal.NullDecimal) *int64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.Round(0).IntPart()
	return &v
}
