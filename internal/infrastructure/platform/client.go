package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize caps reads of admin API responses (10MB).
const maxResponseSize = 10 * 1024 * 1024

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("platform: not found")
	// ErrConflict indicates the entity (or a nested record such as an
	// inventory level) already exists.
	ErrConflict = errors.New("platform: already exists")

	// ErrConfigMissingBaseURL indicates an unset admin API base URL.
	ErrConfigMissingBaseURL = errors.New("platform: base URL is required")
	// ErrConfigMissingToken indicates an unset admin API token.
	ErrConfigMissingToken = errors.New("platform: admin token is required")
)

// Config holds target platform connectivity settings.
type Config struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrConfigMissingBaseURL
	}
	if strings.TrimSpace(c.Token) == "" {
		return ErrConfigMissingToken
	}
	return nil
}

// Client is a token-authenticated HTTP client for the target platform's
// admin API. All methods are context-aware and safe for sequential use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if cfg.TimeoutSeconds <= 0 {
		timeout = 0 // no per-call timeout; a hung call stalls the run (documented gap)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// apiError carries the platform's error body for log context.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("platform: status %d: %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("platform: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("platform: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("platform: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusConflict || isDuplicateBody(raw):
			return ErrConflict
		default:
			return &apiError{Status: resp.StatusCode, Body: truncate(string(raw), 500)}
		}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("platform: decode response: %w", err)
		}
	}
	return nil
}

// isDuplicateBody detects "already exists" reported with a non-409 status,
// which the platform does for some nested resources.
func isDuplicateBody(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	var e struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return false
	}
	return e.Type == "duplicate_error" || strings.Contains(strings.ToLower(e.Message), "already exists")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ---------------------------------------------------------------------------
// Taxonomy
// ---------------------------------------------------------------------------

// FindCategoryByHandle returns the category with the given handle, or nil
// when none exists.
func (c *Client) FindCategoryByHandle(ctx context.Context, handle string) (*ProductCategory, error) {
	var resp categoryListResponse
	q := url.Values{"handle": {handle}}
	if err := c.do(ctx, http.MethodGet, "/admin/product-categories", q, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.ProductCategories) == 0 {
		return nil, nil
	}
	return &resp.ProductCategories[0], nil
}

// CreateCategory creates a product category. The parent named by
// ParentCategoryID must already exist.
func (c *Client) CreateCategory(ctx context.Context, in CreateCategoryInput) (*ProductCategory, error) {
	var resp categoryResponse
	if err := c.do(ctx, http.MethodPost, "/admin/product-categories", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.ProductCategory, nil
}

// FindCollectionByHandle returns the collection with the given handle, or nil.
func (c *Client) FindCollectionByHandle(ctx context.Context, handle string) (*Collection, error) {
	var resp collectionListResponse
	q := url.Values{"handle": {handle}}
	if err := c.do(ctx, http.MethodGet, "/admin/collections", q, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Collections) == 0 {
		return nil, nil
	}
	return &resp.Collections[0], nil
}

// CreateCollection creates a collection.
func (c *Client) CreateCollection(ctx context.Context, in CreateCollectionInput) (*Collection, error) {
	var resp collectionResponse
	if err := c.do(ctx, http.MethodPost, "/admin/collections", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Collection, nil
}

// FindTagByValue returns the tag with exactly the given value, or nil.
func (c *Client) FindTagByValue(ctx context.Context, value string) (*Tag, error) {
	var resp tagListResponse
	q := url.Values{"value": {value}}
	if err := c.do(ctx, http.MethodGet, "/admin/product-tags", q, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.ProductTags {
		if strings.EqualFold(resp.ProductTags[i].Value, value) {
			return &resp.ProductTags[i], nil
		}
	}
	return nil, nil
}

// CreateTag creates a product tag.
func (c *Client) CreateTag(ctx context.Context, value string) (*Tag, error) {
	var resp tagResponse
	in := map[string]string{"value": value}
	if err := c.do(ctx, http.MethodPost, "/admin/product-tags", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.ProductTag, nil
}

// FindTypeByValue returns the product type with the given value, or nil.
func (c *Client) FindTypeByValue(ctx context.Context, value string) (*ProductType, error) {
	var resp typeListResponse
	q := url.Values{"value": {value}}
	if err := c.do(ctx, http.MethodGet, "/admin/product-types", q, nil, &resp); err != nil {
		return nil, err
	}
	for i := range resp.ProductTypes {
		if strings.EqualFold(resp.ProductTypes[i].Value, value) {
			return &resp.ProductTypes[i], nil
		}
	}
	return nil, nil
}

// CreateType creates a product type.
func (c *Client) CreateType(ctx context.Context, value string) (*ProductType, error) {
	var resp typeResponse
	in := map[string]string{"value": value}
	if err := c.do(ctx, http.MethodPost, "/admin/product-types", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.ProductType, nil
}

// ---------------------------------------------------------------------------
// Products and variants
// ---------------------------------------------------------------------------

// FindProductByHandle returns the product with the given handle, or nil.
// The listing carries summary fields only; call GetProduct for
// authoritative option and variant ids.
func (c *Client) FindProductByHandle(ctx context.Context, handle string) (*Product, error) {
	var resp productListResponse
	q := url.Values{"handle": {handle}}
	if err := c.do(ctx, http.MethodGet, "/admin/products", q, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Products) == 0 {
		return nil, nil
	}
	return &resp.Products[0], nil
}

// GetProduct fetches the full product detail including option ids, variant
// ids, variant inventory-item linkage, and price-set ids.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var resp productResponse
	q := url.Values{"fields": {"*variants.inventory_items,*variants.price_set,*options"}}
	if err := c.do(ctx, http.MethodGet, "/admin/products/"+id, q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// CreateProduct creates a product, accepting the nested variant list.
func (c *Client) CreateProduct(ctx context.Context, in CreateProductInput) (*Product, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodPost, "/admin/products", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// UpdateProduct updates product-level fields.
func (c *Client) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (*Product, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodPost, "/admin/products/"+id, nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// CreateVariant adds a variant to an existing product.
func (c *Client) CreateVariant(ctx context.Context, productID string, in CreateVariantInput) error {
	return c.do(ctx, http.MethodPost, "/admin/products/"+productID+"/variants", nil, in, nil)
}

// UpdateVariant updates an existing variant in place.
func (c *Client) UpdateVariant(ctx context.Context, productID, variantID string, in UpdateVariantInput) error {
	return c.do(ctx, http.MethodPost, "/admin/products/"+productID+"/variants/"+variantID, nil, in, nil)
}

// AddPriceSetPrices appends price-list prices to a variant's price set. The
// initial product payload only accepts base prices, so discounted prices go
// through this second phase.
func (c *Client) AddPriceSetPrices(ctx context.Context, priceSetID string, prices []PriceInput) error {
	in := map[string]any{"prices": prices}
	return c.do(ctx, http.MethodPost, "/admin/price-sets/"+priceSetID+"/prices/batch", nil, in, nil)
}

// ---------------------------------------------------------------------------
// Inventory
// ---------------------------------------------------------------------------

// CreateInventoryLevel creates a stock level for an inventory item at a
// location. Returns ErrConflict when a level already exists there.
func (c *Client) CreateInventoryLevel(ctx context.Context, inventoryItemID, locationID string, stocked int) error {
	in := map[string]any{
		"location_id":      locationID,
		"stocked_quantity": stocked,
	}
	return c.do(ctx, http.MethodPost, "/admin/inventory-items/"+inventoryItemID+"/location-levels", nil, in, nil)
}

// UpdateInventoryLevel updates the stocked quantity of an existing level.
func (c *Client) UpdateInventoryLevel(ctx context.Context, inventoryItemID, locationID string, stocked int) error {
	in := map[string]any{"stocked_quantity": stocked}
	return c.do(ctx, http.MethodPost, "/admin/inventory-items/"+inventoryItemID+"/location-levels/"+locationID, nil, in, nil)
}
