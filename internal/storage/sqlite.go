package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// kvEntry is the single-table schema backing SqliteStore.
type kvEntry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

// SqliteStore persists client state in a sqlite database. Useful when the
// stored history should be inspectable with ordinary sqlite tooling.
type SqliteStore struct {
	db *gorm.DB
}

func NewSqliteStore(dsn string) (*SqliteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store %s: %w", dsn, err)
	}

	if err := getMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("migrating sqlite store: %w", err)
	}

	return &SqliteStore{db: db}, nil
}

func getMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&kvEntry{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		return txn.AutoMigrate(&kvEntry{})
	})

	return migrator
}

func (s *SqliteStore) Get(key string) (string, error) {
	var entry kvEntry
	err := s.db.Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading key %s: %w", key, err)
	}
	return entry.Value, nil
}

func (s *SqliteStore) Set(key, value string) error {
	entry := kvEntry{Key: key, Value: value}
	if err := s.db.Save(&entry).Error; err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) Remove(key string) error {
	if err := s.db.Where("key = ?", key).Delete(&kvEntry{}).Error; err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) Keys(prefix string) ([]string, error) {
	var keys []string
	query := s.db.Model(&kvEntry{}).Order("key ASC")
	if prefix != "" {
		// Escape LIKE wildcards so a literal prefix never over-matches.
		escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix)
		query = query.Where("key LIKE ? ESCAPE '\\'", escaped+"%")
	}
	if err := query.Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("listing keys with prefix %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
