package sync

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cartbridge/sync/internal/domain/catalog"
	"github.com/cartbridge/sync/internal/infrastructure/platform"
)

// fakePlatform is an in-memory stand-in for the admin API. It hands out
// sequential ids and counts every write so tests can assert on how many
// network mutations a flow performed.
type fakePlatform struct {
	seq int

	categoriesByHandle  map[string]*platform.ProductCategory
	collectionsByHandle map[string]*platform.Collection
	tagsByValue         map[string]*platform.Tag
	typesByValue        map[string]*platform.ProductType

	products        map[string]*platform.Product
	productByHandle map[string]string

	levels map[string]int // "itemID/locationID" -> quantity

	priceSetPrices map[string][]platform.PriceInput

	categoryCreates   int
	collectionCreates int
	tagCreates        int
	typeCreates       int
	productCreates    int
	productUpdates    int
	variantCreates    int
	variantUpdates    int
	levelCreates      int
	levelUpdates      int

	lastCategoryInput platform.CreateCategoryInput
	lastProductInput  platform.CreateProductInput
	lastUpdateInput   platform.UpdateProductInput

	findCategoryErr   error
	createCategoryErr error
	createProductErr  error
	levelCreateErr    error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		categoriesByHandle:  make(map[string]*platform.ProductCategory),
		collectionsByHandle: make(map[string]*platform.Collection),
		tagsByValue:         make(map[string]*platform.Tag),
		typesByValue:        make(map[string]*platform.ProductType),
		products:            make(map[string]*platform.Product),
		productByHandle:     make(map[string]string),
		levels:              make(map[string]int),
		priceSetPrices:      make(map[string][]platform.PriceInput),
	}
}

func (f *fakePlatform) newID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%02d", prefix, f.seq)
}

func (f *fakePlatform) FindCategoryByHandle(_ context.Context, handle string) (*platform.ProductCategory, error) {
	if f.findCategoryErr != nil {
		return nil, f.findCategoryErr
	}
	return f.categoriesByHandle[handle], nil
}

func (f *fakePlatform) CreateCategory(_ context.Context, in platform.CreateCategoryInput) (*platform.ProductCategory, error) {
	if f.createCategoryErr != nil {
		return nil, f.createCategoryErr
	}
	f.categoryCreates++
	f.lastCategoryInput = in
	cat := &platform.ProductCategory{
		ID:               f.newID("pcat"),
		Name:             in.Name,
		Handle:           in.Handle,
		ParentCategoryID: in.ParentCategoryID,
		Metadata:         in.Metadata,
	}
	f.categoriesByHandle[in.Handle] = cat
	return cat, nil
}

func (f *fakePlatform) FindCollectionByHandle(_ context.Context, handle string) (*platform.Collection, error) {
	return f.collectionsByHandle[handle], nil
}

func (f *fakePlatform) CreateCollection(_ context.Context, in platform.CreateCollectionInput) (*platform.Collection, error) {
	f.collectionCreates++
	col := &platform.Collection{ID: f.newID("pcol"), Title: in.Title, Handle: in.Handle}
	f.collectionsByHandle[in.Handle] = col
	return col, nil
}

func (f *fakePlatform) FindTagByValue(_ context.Context, value string) (*platform.Tag, error) {
	return f.tagsByValue[strings.ToLower(value)], nil
}

func (f *fakePlatform) CreateTag(_ context.Context, value string) (*platform.Tag, error) {
	f.tagCreates++
	tag := &platform.Tag{ID: f.newID("ptag"), Value: value}
	f.tagsByValue[strings.ToLower(value)] = tag
	return tag, nil
}

func (f *fakePlatform) FindTypeByValue(_ context.Context, value string) (*platform.ProductType, error) {
	return f.typesByValue[strings.ToLower(value)], nil
}

func (f *fakePlatform) CreateType(_ context.Context, value string) (*platform.ProductType, error) {
	f.typeCreates++
	typ := &platform.ProductType{ID: f.newID("ptyp"), Value: value}
	f.typesByValue[strings.ToLower(value)] = typ
	return typ, nil
}

func (f *fakePlatform) FindProductByHandle(_ context.Context, handle string) (*platform.Product, error) {
	id, ok := f.productByHandle[handle]
	if !ok {
		return nil, nil
	}
	p := *f.products[id]
	return &p, nil
}

func (f *fakePlatform) GetProduct(_ context.Context, id string) (*platform.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, platform.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlatform) CreateProduct(_ context.Context, in platform.CreateProductInput) (*platform.Product, error) {
	if f.createProductErr != nil {
		return nil, f.createProductErr
	}
	f.productCreates++
	f.lastProductInput = in

	p := &platform.Product{
		ID:       f.newID("prod"),
		Title:    in.Title,
		Handle:   in.Handle,
		Metadata: in.Metadata,
	}
	for _, opt := range in.Options {
		p.Options = append(p.Options, platform.ProductOption{ID: f.newID("opt"), Title: opt.Title, Values: opt.Values})
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, f.newVariant(v))
	}
	f.products[p.ID] = p
	f.productByHandle[p.Handle] = p.ID
	return p, nil
}

func (f *fakePlatform) newVariant(in platform.CreateVariantInput) platform.Variant {
	return platform.Variant{
		ID:             f.newID("var"),
		Title:          in.Title,
		SKU:            in.SKU,
		PriceSetID:     f.newID("pset"),
		InventoryItems: []platform.InventoryItem{{InventoryItemID: f.newID("iitem")}},
	}
}

func (f *fakePlatform) UpdateProduct(_ context.Context, id string, in platform.UpdateProductInput) (*platform.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, platform.ErrNotFound
	}
	f.productUpdates++
	f.lastUpdateInput = in
	if in.Title != "" {
		p.Title = in.Title
	}
	if in.Metadata != nil {
		p.Metadata = in.Metadata
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlatform) CreateVariant(_ context.Context, productID string, in platform.CreateVariantInput) error {
	p, ok := f.products[productID]
	if !ok {
		return platform.ErrNotFound
	}
	f.variantCreates++
	p.Variants = append(p.Variants, f.newVariant(in))
	return nil
}

func (f *fakePlatform) UpdateVariant(_ context.Context, productID, variantID string, in platform.UpdateVariantInput) error {
	p, ok := f.products[productID]
	if !ok {
		return platform.ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID == variantID {
			f.variantUpdates++
			if in.Title != "" {
				p.Variants[i].Title = in.Title
			}
			return nil
		}
	}
	return platform.ErrNotFound
}

func (f *fakePlatform) AddPriceSetPrices(_ context.Context, priceSetID string, prices []platform.PriceInput) error {
	f.priceSetPrices[priceSetID] = append(f.priceSetPrices[priceSetID], prices...)
	return nil
}

func (f *fakePlatform) CreateInventoryLevel(_ context.Context, inventoryItemID, locationID string, quantity int) error {
	if f.levelCreateErr != nil {
		return f.levelCreateErr
	}
	key := inventoryItemID + "/" + locationID
	if _, exists := f.levels[key]; exists {
		return platform.ErrConflict
	}
	f.levelCreates++
	f.levels[key] = quantity
	return nil
}

func (f *fakePlatform) UpdateInventoryLevel(_ context.Context, inventoryItemID, locationID string, quantity int) error {
	f.levelUpdates++
	f.levels[inventoryItemID+"/"+locationID] = quantity
	return nil
}

// variantBySKU digs a variant out of the stored product for assertions.
func (f *fakePlatform) variantBySKU(handle, sku string) (platform.Variant, bool) {
	id, ok := f.productByHandle[handle]
	if !ok {
		return platform.Variant{}, false
	}
	for _, v := range f.products[id].Variants {
		if v.SKU == sku {
			return v, true
		}
	}
	return platform.Variant{}, false
}

// fakeSource serves a fixed product list with offset pagination plus
// per-product lookup tables.
type fakeSource struct {
	products    []catalog.SourceProduct
	groups      map[int][]catalog.OptionGroup
	categoryIDs map[int][]int
	images      map[int][]string
	categories  map[int]catalog.SourceCategory

	fetchErr error

	productQueries int
}

func (s *fakeSource) FetchProducts(_ context.Context, limit, offset int) ([]catalog.SourceProduct, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.productQueries++
	if offset >= len(s.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.products) {
		end = len(s.products)
	}
	return s.products[offset:end], nil
}

func (s *fakeSource) FetchOptionGroups(_ context.Context, productID int) ([]catalog.OptionGroup, error) {
	return s.groups[productID], nil
}

func (s *fakeSource) FetchProductCategoryIDs(_ context.Context, productID int) ([]int, error) {
	return s.categoryIDs[productID], nil
}

func (s *fakeSource) FetchProductImages(_ context.Context, productID int) ([]string, error) {
	return s.images[productID], nil
}

func (s *fakeSource) FetchCategories(_ context.Context) (map[int]catalog.SourceCategory, error) {
	return s.categories, nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
