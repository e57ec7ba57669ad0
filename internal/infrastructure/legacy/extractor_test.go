package legacy

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/cartbridge/sync/internal/infrastructure/config"
)

// newMockStore creates a Store backed by a mocked SQL connection.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	cfg := &config.LegacyConfig{TablePrefix: "oc_", LanguageID: 1, StoreID: 0}
	return NewStore(gormDB, cfg, zap.NewNop()), mock, mockDB
}

func TestStore_FetchProducts(t *testing.T) {
	store, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	added := time.Date(2019, 4, 2, 10, 0, 0, 0, time.UTC)
	modified := time.Date(2023, 11, 5, 9, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"product_id", "model", "sku", "quantity", "price", "image",
		"weight", "length", "width", "height", "date_added", "date_modified",
		"name", "description", "tag",
		"manufacturer", "special_price", "type_hint",
		"category_names", "collection_names",
	}).AddRow(
		42, "KP-100", "KP-100", 12, "199.0000", "catalog/kp100.jpg",
		"0.50", nil, nil, nil, added, modified,
		"Garlic Press", "<p>Crushes garlic.</p>", "kitchen,tools",
		"Acme", nil, "Kitchenware",
		"Kitchen", "Home",
	)

	mock.ExpectQuery(`SELECT p\.product_id, p\.model, p\.sku`).
		WillReturnRows(rows)

	products, err := store.FetchProducts(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, 42, p.ID)
	assert.Equal(t, "KP-100", p.Model)
	assert.Equal(t, 12, p.Quantity)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(199)))
	assert.False(t, p.SpecialPrice.Valid)
	assert.Equal(t, "Garlic Press", p.Name)
	assert.Equal(t, "Kitchenware", p.TypeHint)
	assert.Equal(t, "Kitchen", p.CategoryNames)
	assert.True(t, p.Weight.Valid)
	assert.False(t, p.Length.Valid)
	assert.Equal(t, added, p.DateAdded)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchProducts_EmptyPage(t *testing.T) {
	store, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT p\.product_id`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	products, err := store.FetchProducts(context.Background(), 50, 200)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestStore_FetchOptionGroups(t *testing.T) {
	store, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{
		"product_option_id", "group_name", "group_type",
		"product_option_value_id", "value_name", "quantity", "subtract",
		"price", "price_prefix", "value_sku",
	}).
		AddRow(10, "Color", "select", 100, "Red", 0, 0, "5.00", "+", "").
		AddRow(10, "Color", "select", 101, "Blue", 0, 0, "2.00", "-", "").
		AddRow(11, "Size", "radio", 102, "Large", 3, 1, nil, "+", "")

	mock.ExpectQuery(`SELECT po\.product_option_id, od\.name AS group_name`).
		WillReturnRows(rows)

	groups, err := store.FetchOptionGroups(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	color := groups[0]
	assert.Equal(t, "Color", color.Name)
	require.Len(t, color.Values, 2)
	assert.True(t, color.Values[0].PriceDelta.Equal(decimal.NewFromInt(5)))
	assert.True(t, color.Values[1].PriceDelta.Equal(decimal.NewFromInt(-2)))
	assert.False(t, color.Values[0].HasQuantity)

	size := groups[1]
	require.Len(t, size.Values, 1)
	assert.True(t, size.Values[0].HasQuantity)
	assert.Equal(t, 3, size.Values[0].Quantity)
	assert.True(t, size.Values[0].PriceDelta.IsZero())
}

func TestStore_FetchProductCategoryIDs(t *testing.T) {
	store, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT category_id FROM oc_product_to_category`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"category_id"}).AddRow(3).AddRow(9))

	ids, err := store.FetchProductCategoryIDs(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 9}, ids)
}

func TestStore_FetchProductImages(t *testing.T) {
	store, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT image FROM oc_product_image`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).
			AddRow("catalog/a.jpg").AddRow("catalog/b.jpg"))

	images, err := store.FetchProductImages(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"catalog/a.jpg", "catalog/b.jpg"}, images)
}

func TestStore_FetchCategories(t *testing.T) {
	store, mock, mockDB := newMockStore(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"category_id", "parent_id", "name", "description"}).
		AddRow(1, 0, "Home", "").
		AddRow(2, 1, "Kitchen", "Kitchen things")

	mock.ExpectQuery(`SELECT c\.category_id, c\.parent_id`).
		WithArgs(1).
		WillReturnRows(rows)

	tree, err := store.FetchCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, 0, tree[1].ParentID)
	assert.Equal(t, 1, tree[2].ParentID)
	assert.Equal(t, "Kitchen", tree[2].Name)
}

func TestStore_DetectOptionSKUColumn(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		store, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema\.columns`).
			WithArgs("oc_product_option_value").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		got, err := store.DetectOptionSKUColumn(context.Background())
		require.NoError(t, err)
		assert.True(t, got)
		assert.True(t, store.hasOptionSKU)
	})

	t.Run("absent", func(t *testing.T) {
		store, mock, mockDB := newMockStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM information_schema\.columns`).
			WithArgs("oc_product_option_value").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		got, err := store.DetectOptionSKUColumn(context.Background())
		require.NoError(t, err)
		assert.False(t, got)
	})
}
