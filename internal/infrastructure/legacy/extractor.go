package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cartbridge/sync/internal/domain/catalog"
)

type productRow struct {
	ProductID    int                 `gorm:"column:product_id"`
	Model        string              `gorm:"column:model"`
	SKU          string              `gorm:"column:sku"`
	Quantity     int                 `gorm:"column:quantity"`
	Price        decimal.Decimal     `gorm:"column:price"`
	Image        string              `gorm:"column:image"`
	Weight       decimal.NullDecimal `gorm:"column:weight"`
	Length       decimal.NullDecimal `gorm:"column:length"`
	Width        decimal.NullDecimal `gorm:"column:width"`
	Height       decimal.NullDecimal `gorm:"column:height"`
	DateAdded    time.Time           `gorm:"column:date_added"`
	DateModified time.Time           `gorm:"column:date_modified"`

	Name        string `gorm:"column:name"`
	Description string `gorm:"column:description"`
	Tag         string `gorm:"column:tag"`

	Manufacturer    string              `gorm:"column:manufacturer"`
	SpecialPrice    decimal.NullDecimal `gorm:"column:special_price"`
	TypeHint        sql.NullString      `gorm:"column:type_hint"`
	CategoryNames   sql.NullString      `gorm:"column:category_names"`
	CollectionNames sql.NullString      `gorm:"column:collection_names"`
}

// FetchProducts returns one offset-based page of active, store-scoped
// products with aggregated sub-selects. Pagination is offset-based; rows
// deleted mid-run can shift later pages and be skipped, which is accepted
// for a batch migration.
func (s *Store) FetchProducts(ctx context.Context, limit, offset int) ([]catalog.SourceProduct, error) {
	query := fmt.Sprintf(`SELECT p.product_id, p.model, p.sku, p.quantity, p.price, p.image,
  p.weight, p.length, p.width, p.height, p.date_added, p.date_modified,
  pd.name, pd.description, pd.tag,
  COALESCE(m.name, '') AS manufacturer,
  (SELECT ps.price FROM %[1]s ps
     WHERE ps.product_id = p.product_id
       AND (ps.date_start = '0000-00-00' OR ps.date_start <= NOW())
       AND (ps.date_end = '0000-00-00' OR ps.date_end >= NOW())
     ORDER BY ps.priority ASC, ps.price ASC LIMIT 1) AS special_price,
  (SELECT pa.text FROM %[2]s pa
     JOIN %[3]s ad ON ad.attribute_id = pa.attribute_id AND ad.language_id = pa.language_id
     WHERE pa.product_id = p.product_id AND pa.language_id = @lang AND LOWER(ad.name) = 'type'
     LIMIT 1) AS type_hint,
  (SELECT GROUP_CONCAT(cd.name SEPARATOR '\n') FROM %[4]s p2c
     JOIN %[5]s cd ON cd.category_id = p2c.category_id AND cd.language_id = @lang
     WHERE p2c.product_id = p.product_id) AS category_names,
  (SELECT GROUP_CONCAT(cd2.name SEPARATOR '\n') FROM %[4]s p2c2
     JOIN %[6]s c2 ON c2.category_id = p2c2.category_id AND c2.parent_id = 0
     JOIN %[5]s cd2 ON cd2.category_id = c2.category_id AND cd2.language_id = @lang
     WHERE p2c2.product_id = p.product_id) AS collection_names
FROM %[7]s p
JOIN %[8]s pd ON pd.product_id = p.product_id AND pd.language_id = @lang
JOIN %[9]s p2s ON p2s.product_id = p.product_id AND p2s.store_id = @store
LEFT JOIN %[10]s m ON m.manufacturer_id = p.manufacturer_id
WHERE p.status = 1
ORDER BY p.product_id
LIMIT @limit OFFSET @offset`,
		s.table("product_special"),
		s.table("product_attribute"),
		s.table("attribute_description"),
		s.table("product_to_category"),
		s.table("category_description"),
		s.table("category"),
		s.table("product"),
		s.table("product_description"),
		s.table("product_to_store"),
		s.table("manufacturer"),
	)

	var rows []productRow
	err := s.db.WithContext(ctx).Raw(query,
		sql.Named("lang", s.languageID),
		sql.Named("store", s.storeID),
		sql.Named("limit", limit),
		sql.Named("offset", offset),
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("legacy: fetch products (offset %d): %w", offset, err)
	}

	products := make([]catalog.SourceProduct, len(rows))
	for i, r := range rows {
		products[i] = catalog.SourceProduct{
			ID:              r.ProductID,
			Model:           r.Model,
			SKU:             r.SKU,
			Quantity:        r.Quantity,
			Price:           r.Price,
			SpecialPrice:    r.SpecialPrice,
			Name:            r.Name,
			Description:     r.Description,
			Tags:            r.Tag,
			Manufacturer:    r.Manufacturer,
			TypeHint:        r.TypeHint.String,
			CategoryNames:   r.CategoryNames.String,
			CollectionNames: r.CollectionNames.String,
			Image:           r.Image,
			Weight:          r.Weight,
			Length:          r.Length,
			Width:           r.Width,
			Height:          r.Height,
			DateAdded:       r.DateAdded,
			DateModified:    r.DateModified,
		}
	}
	return products, nil
}

type optionRow struct {
	ProductOptionID      int                 `gorm:"column:product_option_id"`
	GroupName            string              `gorm:"column:group_name"`
	GroupType            string              `gorm:"column:group_type"`
	ProductOptionValueID int                 `gorm:"column:product_option_value_id"`
	ValueName            string              `gorm:"column:value_name"`
	Quantity             int                 `gorm:"column:quantity"`
	Subtract             int                 `gorm:"column:subtract"`
	Price                decimal.NullDecimal `gorm:"column:price"`
	PricePrefix          string              `gorm:"column:price_prefix"`
	ValueSKU             sql.NullString      `gorm:"column:value_sku"`
}

// FetchOptionGroups returns a product's choice-type option groups with their
// ordered values. The per-value sku column is selected only when the schema
// probe found it.
func (s *Store) FetchOptionGroups(ctx context.Context, productID int) ([]catalog.OptionGroup, error) {
	skuColumn := "'' AS value_sku"
	if s.hasOptionSKU {
		skuColumn = "pov.sku AS value_sku"
	}

	query := fmt.Sprintf(`SELECT po.product_option_id, od.name AS group_name, o.type AS group_type,
  pov.product_option_value_id, ovd.name AS value_name,
  pov.quantity, pov.subtract, pov.price, pov.price_prefix, %s
FROM %s po
JOIN %s o ON o.option_id = po.option_id AND o.type IN ('select', 'radio', 'checkbox', 'image')
JOIN %s od ON od.option_id = po.option_id AND od.language_id = @lang
JOIN %s pov ON pov.product_option_id = po.product_option_id
JOIN %s ovd ON ovd.option_value_id = pov.option_value_id AND ovd.language_id = @lang
WHERE po.product_id = @product
ORDER BY po.product_option_id, pov.product_option_value_id`,
		skuColumn,
		s.table("product_option"),
		s.table("option"),
		s.table("option_description"),
		s.table("product_option_value"),
		s.table("option_value_description"),
	)

	var rows []optionRow
	err := s.db.WithContext(ctx).Raw(query,
		sql.Named("lang", s.languageID),
		sql.Named("product", productID),
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("legacy: fetch options for product %d: %w", productID, err)
	}

	var groups []catalog.OptionGroup
	byID := make(map[int]int) // product_option_id -> index in groups
	for _, r := range rows {
		idx, ok := byID[r.ProductOptionID]
		if !ok {
			groups = append(groups, catalog.OptionGroup{
				ID:   r.ProductOptionID,
				Name: r.GroupName,
				Type: r.GroupType,
			})
			idx = len(groups) - 1
			byID[r.ProductOptionID] = idx
		}

		delta := decimal.Zero
		if r.Price.Valid {
			delta = r.Price.Decimal
			if r.PricePrefix == "-" {
				delta = delta.Neg()
			}
		}
		groups[idx].Values = append(groups[idx].Values, catalog.OptionValue{
			ID:          r.ProductOptionValueID,
			Name:        r.ValueName,
			Quantity:    r.Quantity,
			HasQuantity: r.Subtract == 1,
			PriceDelta:  delta,
			SKU:         r.ValueSKU.String,
		})
	}
	return groups, nil
}

// FetchProductCategoryIDs returns the authoritative category memberships of
// a product from the join table.
func (s *Store) FetchProductCategoryIDs(ctx context.Context, productID int) ([]int, error) {
	query := fmt.Sprintf(`SELECT category_id FROM %s WHERE product_id = ? ORDER BY category_id`,
		s.table("product_to_category"))

	var ids []int
	if err := s.db.WithContext(ctx).Raw(query, productID).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("legacy: fetch category ids for product %d: %w", productID, err)
	}
	return ids, nil
}

// FetchProductImages returns a product's extra image paths in sort order.
func (s *Store) FetchProductImages(ctx context.Context, productID int) ([]string, error) {
	query := fmt.Sprintf(`SELECT image FROM %s WHERE product_id = ? AND image <> '' ORDER BY sort_order, product_image_id`,
		s.table("product_image"))

	var images []string
	if err := s.db.WithContext(ctx).Raw(query, productID).Scan(&images).Error; err != nil {
		return nil, fmt.Errorf("legacy: fetch images for product %d: %w", productID, err)
	}
	return images, nil
}

type categoryRow struct {
	CategoryID  int    `gorm:"column:category_id"`
	ParentID    int    `gorm:"column:parent_id"`
	Name        string `gorm:"column:name"`
	Description string `gorm:"column:description"`
}

// FetchCategories loads the whole active category tree into an id-keyed map.
// Category resolution needs random access to ancestors, so the tree is read
// once per run before product processing begins.
func (s *Store) FetchCategories(ctx context.Context) (map[int]catalog.SourceCategory, error) {
	query := fmt.Sprintf(`SELECT c.category_id, c.parent_id, cd.name, cd.description
FROM %s c
JOIN %s cd ON cd.category_id = c.category_id AND cd.language_id = ?
WHERE c.status = 1`,
		s.table("category"),
		s.table("category_description"),
	)

	var rows []categoryRow
	if err := s.db.WithContext(ctx).Raw(query, s.languageID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("legacy: fetch categories: %w", err)
	}

	tree := make(map[int]catalog.SourceCategory, len(rows))
	for _, r := range rows {
		tree[r.CategoryID] = catalog.SourceCategory{
			ID:          r.CategoryID,
			ParentID:    r.ParentID,
			Name:        r.Name,
			Description: r.Description,
		}
	}
	return tree, nil
}
