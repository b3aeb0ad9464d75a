package ledger

import (
	"context"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/promoimperio/broadcast_backend/models"
	"gorm.io/gorm"
)

// DBStore keeps the ledger in a MySQL table with a unique key index. Unlike
// the file backend it is safe for multiple agent instances: a concurrent
// append of the same key collapses into one row.
type DBStore struct {
	DB *gorm.DB
}

func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := db.AutoMigrate(&models.SentEntry{}); err != nil {
		return nil, err
	}
	return &DBStore{DB: db}, nil
}

func (s *DBStore) IsSent(ctx context.Context, key string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.SentEntry{}).
		Where("`key` = ?", key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *DBStore) Record(ctx context.Context, key string) error {
	err := s.DB.WithContext(ctx).Create(&models.SentEntry{Key: key}).Error
	if err != nil && isDuplicateKeyErr(err) {
		// Another instance committed the same slot first; the invariant
		// (at most one row per key) still holds.
		return nil
	}
	return err
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
