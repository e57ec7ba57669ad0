package legacy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cartbridge/sync/internal/infrastructure/config"
	"github.com/cartbridge/sync/internal/infrastructure/logger"
)

// Store reads the legacy commerce database. All access is read-only; exact
// table and column names are a fixed external contract, with a configurable
// table prefix and language/store scope.
type Store struct {
	db         *gorm.DB
	prefix     string
	languageID int
	storeID    int

	// hasOptionSKU is resolved once at startup by DetectOptionSKUColumn;
	// older schema revisions lack the per-value sku column.
	hasOptionSKU bool

	log *zap.Logger
}

// Open connects to the legacy database and returns a Store.
func Open(cfg *config.LegacyConfig, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                 logger.NewGormLogger(log, gormlogger.Warn),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("legacy: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("legacy: get underlying sql.DB: %w", err)
	}
	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 4
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return NewStore(db, cfg, log), nil
}

// NewStore wraps an existing gorm connection; used directly by tests.
func NewStore(db *gorm.DB, cfg *config.LegacyConfig, log *zap.Logger) *Store {
	return &Store{
		db:         db,
		prefix:     cfg.TablePrefix,
		languageID: cfg.LanguageID,
		storeID:    cfg.StoreID,
		log:        log.Named("legacy"),
	}
}

// Ping verifies the connection before a run begins.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("legacy: get underlying sql.DB: %w", err)
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(c); err != nil {
		return fmt.Errorf("legacy: ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("legacy: get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) table(name string) string {
	return s.prefix + name
}

// DetectOptionSKUColumn probes the schema once for the optional sku column
// on the option-value table. The result is cached on the store; per-row
// probing would hammer information_schema.
func (s *Store) DetectOptionSKUColumn(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? AND column_name = 'sku'`,
		s.table("product_option_value"),
	).Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("legacy: detect option sku column: %w", err)
	}
	s.hasOptionSKU = count > 0
	s.log.Info("option value sku column detected", zap.Bool("present", s.hasOptionSKU))
	return s.hasOptionSKU, nil
}
