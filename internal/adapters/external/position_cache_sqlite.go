package external

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"meetingindex.app/internal/ports"
	"meetingindex.app/pkg/errors"
)

// PositionModel is the GORM model for one cached geocode lookup. Negative
// lookups are stored with NULL coordinates.
type PositionModel struct {
	Query       string `gorm:"primaryKey"`
	Latitude    *float64
	Longitude   *float64
	RequestedAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for PositionModel
func (PositionModel) TableName() string {
	return "positions"
}

// SqlitePositionCacheAdapter implements the PositionCache port on an embedded
// SQLite database. Expired entries stay on disk and are filtered on read.
type SqlitePositionCacheAdapter struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSqlitePositionCacheAdapter opens (and migrates) the cache database at the
// given path
func NewSqlitePositionCacheAdapter(path string, ttl time.Duration) (*SqlitePositionCacheAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.NewDatabaseError("failed to open position cache database", err)
	}

	if err := db.AutoMigrate(&PositionModel{}); err != nil {
		return nil, errors.NewDatabaseError("failed to migrate position cache schema", err)
	}

	return &SqlitePositionCacheAdapter{db: db, ttl: ttl}, nil
}

// Get returns the cached entry for query, or nil when it is absent or older
// than the TTL
func (c *SqlitePositionCacheAdapter) Get(ctx context.Context, query string) (*ports.CachedPosition, error) {
	cutoff := time.Now().UTC().Add(-c.ttl)

	var model PositionModel
	result := c.db.WithContext(ctx).
		Where("query = ? AND requested_at > ?", query, cutoff).
		First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.NewDatabaseError("failed to read position cache", result.Error)
	}

	return &ports.CachedPosition{
		Query:       model.Query,
		Latitude:    model.Latitude,
		Longitude:   model.Longitude,
		RequestedAt: model.RequestedAt,
	}, nil
}

// Put stores or refreshes the entry for entry.Query
func (c *SqlitePositionCacheAdapter) Put(ctx context.Context, entry ports.CachedPosition) error {
	model := PositionModel{
		Query:       entry.Query,
		Latitude:    entry.Latitude,
		Longitude:   entry.Longitude,
		RequestedAt: entry.RequestedAt,
	}

	result := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "query"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "requested_at"}),
	}).Create(&model)
	if result.Error != nil {
		return errors.NewDatabaseError("failed to write position cache", result.Error)
	}

	return nil
}

// Close closes the underlying database connection
func (c *SqlitePositionCacheAdapter) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return errors.NewDatabaseError("failed to get underlying database connection", err)
	}
	if err := sqlDB.Close(); err != nil {
		return errors.NewDatabaseError("failed to close position cache database", err)
	}
	return nil
}
