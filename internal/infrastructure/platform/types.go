package platform

// Request/response shapes for the consumed slice of the target platform's
// admin API. The engine treats the API as an opaque contract; only the
// fields it reads or writes are modeled.

// ProductCategory is a category node on the target platform.
type ProductCategory struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Handle           string         `json:"handle"`
	Description      string         `json:"description,omitempty"`
	ParentCategoryID string         `json:"parent_category_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// CreateCategoryInput creates a category; ParentCategoryID must already
// exist on the platform, which is why resolution is parent-before-child.
type CreateCategoryInput struct {
	Name             string         `json:"name"`
	Handle           string         `json:"handle"`
	Description      string         `json:"description,omitempty"`
	IsActive         bool           `json:"is_active"`
	ParentCategoryID string         `json:"parent_category_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Collection groups products under a storefront collection.
type Collection struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Handle string `json:"handle"`
}

// CreateCollectionInput creates a collection.
type CreateCollectionInput struct {
	Title    string         `json:"title"`
	Handle   string         `json:"handle"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Tag is a flat product tag keyed by its value.
type Tag struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ProductType is a flat product type keyed by its value.
type ProductType struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Product is the platform's view of a product. Detail fetches populate
// Options and Variants with authoritative ids for reconciliation.
type Product struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Handle   string          `json:"handle"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Options  []ProductOption `json:"options,omitempty"`
	Variants []Variant       `json:"variants,omitempty"`
}

// ProductOption is an option definition attached to a product.
type ProductOption struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Values []string `json:"values,omitempty"`
}

// Variant is an existing variant on the platform. InventoryItems links the
// variant to its stock-tracking records; PriceSetID keys price-list writes.
type Variant struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	SKU            string          `json:"sku"`
	PriceSetID     string          `json:"price_set_id,omitempty"`
	InventoryItems []InventoryItem `json:"inventory_items,omitempty"`
}

// InventoryItem references the stock-tracking record backing a variant.
type InventoryItem struct {
	InventoryItemID string `json:"inventory_item_id"`
}

// PriceInput is one money amount in integer minor units.
type PriceInput struct {
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// CreateVariantInput creates or replaces variant fields. Options maps
// option title to the chosen value name.
type CreateVariantInput struct {
	Title     string            `json:"title"`
	SKU       string            `json:"sku"`
	Options   map[string]string `json:"options"`
	Prices    []PriceInput      `json:"prices"`
	Weight    *int64            `json:"weight,omitempty"`
	Length    *int64            `json:"length,omitempty"`
	Width     *int64            `json:"width,omitempty"`
	Height    *int64            `json:"height,omitempty"`
	Manage    bool              `json:"manage_inventory"`
	AllowBack bool              `json:"allow_backorder"`
}

// UpdateVariantInput updates an existing variant in place.
type UpdateVariantInput struct {
	Title   string            `json:"title,omitempty"`
	Options map[string]string `json:"options,omitempty"`
	Prices  []PriceInput      `json:"prices,omitempty"`
}

// OptionInput re-issues an option definition; ID is set when the option
// already exists so updates do not create duplicate definitions.
type OptionInput struct {
	ID     string   `json:"id,omitempty"`
	Title  string   `json:"title"`
	Values []string `json:"values"`
}

// CreateProductInput creates a product. Nested variant creation is accepted
// on initial creation only; updates must reconcile variants individually.
type CreateProductInput struct {
	Title        string               `json:"title"`
	Handle       string               `json:"handle"`
	Description  string               `json:"description,omitempty"`
	Status       string               `json:"status,omitempty"`
	Images       []ProductImageInput  `json:"images,omitempty"`
	Options      []OptionInput        `json:"options"`
	Variants     []CreateVariantInput `json:"variants"`
	CategoryIDs  []string             `json:"category_ids,omitempty"`
	CollectionID string               `json:"collection_id,omitempty"`
	TypeID       string               `json:"type_id,omitempty"`
	TagIDs       []string             `json:"tag_ids,omitempty"`
	Weight       *int64               `json:"weight,omitempty"`
	Length       *int64               `json:"length,omitempty"`
	Width        *int64               `json:"width,omitempty"`
	Height       *int64               `json:"height,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
}

// ProductImageInput attaches one image URL to a product.
type ProductImageInput struct {
	URL string `json:"url"`
}

// UpdateProductInput updates product-level fields; variants are reconciled
// separately by SKU.
type UpdateProductInput struct {
	Title        string              `json:"title,omitempty"`
	Description  string              `json:"description,omitempty"`
	Status       string              `json:"status,omitempty"`
	Images       []ProductImageInput `json:"images,omitempty"`
	Options      []OptionInput       `json:"options,omitempty"`
	CategoryIDs  []string            `json:"category_ids,omitempty"`
	CollectionID string              `json:"collection_id,omitempty"`
	TypeID       string              `json:"type_id,omitempty"`
	TagIDs       []string            `json:"tag_ids,omitempty"`
	Weight       *int64              `json:"weight,omitempty"`
	Length       *int64              `json:"length,omitempty"`
	Width        *int64              `json:"width,omitempty"`
	Height       *int64              `json:"height,omitempty"`
	Metadata     map[string]any      `json:"metadata,omitempty"`
}

// response envelopes

type categoryListResponse struct {
	ProductCategories []ProductCategory `json:"product_categories"`
}

type categoryResponse struct {
	ProductCategory ProductCategory `json:"product_category"`
}

type collectionListResponse struct {
	Collections []Collection `json:"collections"`
}

type collectionResponse struct {
	Collection Collection `json:"collection"`
}

type tagListResponse struct {
	ProductTags []Tag `json:"product_tags"`
}

type tagResponse struct {
	ProductTag Tag `json:"product_tag"`
}

type typeListResponse struct {
	ProductTypes []ProductType `json:"product_types"`
}

type typeResponse struct {
	ProductType ProductType `json:"product_type"`
}

type productListResponse struct {
	Products []Product `json:"products"`
}

type productResponse struct {
	Product Product `json:"product"`
}
