// Package store persists linked accounts in SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound reports a lookup that matched no account.
var ErrNotFound = errors.New("account not found")

// Account is one identity on an external platform. A visitor who signs in
// through several platforms ends up with one row per platform; ID is the
// stable local id the passport refers to.
type Account struct {
	ID          string `gorm:"primaryKey"`
	Platform    string `gorm:"uniqueIndex:idx_accounts_identity;not null"`
	Account     string `gorm:"uniqueIndex:idx_accounts_identity;not null"`
	Refresh     string
	Access      string
	Expire      time.Time
	Handle      string
	Name        string
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// mutableColumns are rewritten on every sign-in. The refresh token is not
// among them: platforms that hand one out only do so on the first grant,
// so a later sign-in must not blank it.
var mutableColumns = []string{"access", "expire", "handle", "name", "description", "image", "updated_at"}

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// Open opens the SQLite database at path, creating and migrating it as
// needed.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database at %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("migrate accounts: %w", err)
	}

	return &Store{db: db}, nil
}

// LinkAccount records a completed sign-in. A new (platform, account) pair
// is inserted; a known pair has its mutable columns refreshed in place.
// Either way the write is a single conflict-target upsert, so two
// concurrent sign-ins for the same pair cannot fork the record, and the
// returned row carries the stable local id.
func (s *Store) LinkAccount(ctx context.Context, acct Account) (*Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "account"}},
		DoUpdates: clause.AssignmentColumns(mutableColumns),
	}).Create(&acct).Error
	if err != nil {
		return nil, fmt.Errorf("upsert %s account %s: %w", acct.Platform, acct.Account, err)
	}

	// re-read: on conflict the row keeps its original id, not the
	// candidate one generated above
	var saved Account
	err = s.db.WithContext(ctx).
		Where("platform = ? AND account = ?", acct.Platform, acct.Account).
		First(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("read back %s account %s: %w", acct.Platform, acct.Account, err)
	}

	return &saved, nil
}

// GetAccount looks an account up by its local id.
func (s *Store) GetAccount(ctx context.Context, id string) (*Account, error) {
	var acct Account
	err := s.db.WithContext(ctx).First(&acct, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}

	return &acct, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}
