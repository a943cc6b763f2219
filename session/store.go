package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Order selects the ordering of FetchAll by session id.
type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

// Store is the transactional persistence contract for sessions.
type Store interface {
	// FetchAll returns every session with its messages ordered by Sequence.
	FetchAll(ctx context.Context, order Order) ([]SessionModel, error)
	// FetchOne returns nil, nil when no session has the id.
	FetchOne(ctx context.Context, id int64) (*SessionModel, error)
	Insert(ctx context.Context, s *SessionModel) error
	// AppendMessages adds messages after the last persisted one of the session.
	AppendMessages(ctx context.Context, id int64, msgs []MessageModel) error
	// Transaction runs fn atomically. fn must only use the Store it is given.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// StoreError wraps every failure coming out of a Store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

var ErrNestedTransaction = errors.New("nested transaction")

// AllModels returns the GORM models to migrate.
func AllModels() []interface{} {
	return []interface{}{
		&SessionModel{},
		&MessageModel{},
	}
}

// GormStore implements Store on gorm. A store-wide mutex spans every
// transaction so a read-then-write cannot interleave with another writer.
type GormStore struct {
	db   *gorm.DB
	mu   *sync.Mutex
	inTx bool
}

// Open opens (creating if needed) the sqlite database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*GormStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &StoreError{Op: "open", Err: err}
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &StoreError{Op: "open", Err: fmt.Errorf("%s: %w", path, err)}
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// sqlite writers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	sqlDB.SetMaxOpenConns(1)

	return NewGormStore(db)
}

// NewGormStore wraps an existing connection and migrates the session tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, &StoreError{Op: "open", Err: errors.New("db is required")}
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, &StoreError{Op: "auto-migrate", Err: err}
	}
	return &GormStore{db: db, mu: &sync.Mutex{}}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &StoreError{Op: "close", Err: err}
	}
	return nil
}

func (s *GormStore) FetchAll(ctx context.Context, order Order) ([]SessionModel, error) {
	orderBy := "id"
	if order == OrderDescending {
		orderBy = "id DESC"
	}

	var sessions []SessionModel
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Order(orderBy).
		Find(&sessions).Error
	if err != nil {
		return nil, &StoreError{Op: "fetch all", Err: err}
	}
	return sessions, nil
}

func (s *GormStore) FetchOne(ctx context.Context, id int64) (*SessionModel, error) {
	var sessions []SessionModel
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Where("id = ?", id).
		Limit(1).
		Find(&sessions).Error
	if err != nil {
		return nil, &StoreError{Op: fmt.Sprintf("fetch session %d", id), Err: err}
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (s *GormStore) Insert(ctx context.Context, session *SessionModel) error {
	for i := range session.Messages {
		session.Messages[i].SessionID = session.ID
		session.Messages[i].Sequence = i + 1
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return &StoreError{Op: fmt.Sprintf("insert session %d", session.ID), Err: err}
	}
	return nil
}

func (s *GormStore) AppendMessages(ctx context.Context, id int64, msgs []MessageModel) error {
	if len(msgs) == 0 {
		return nil
	}

	var last struct{ Max int }
	err := s.db.WithContext(ctx).
		Model(&MessageModel{}).
		Select("COALESCE(MAX(sequence), 0) AS max").
		Where("session_id = ?", id).
		Scan(&last).Error
	if err != nil {
		return &StoreError{Op: fmt.Sprintf("append to session %d", id), Err: err}
	}

	for i := range msgs {
		msgs[i].SessionID = id
		msgs[i].Sequence = last.Max + i + 1
	}
	if err := s.db.WithContext(ctx).Create(&msgs).Error; err != nil {
		return &StoreError{Op: fmt.Sprintf("append to session %d", id), Err: err}
	}
	if err := s.db.WithContext(ctx).Model(&SessionModel{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		return &StoreError{Op: fmt.Sprintf("touch session %d", id), Err: err}
	}
	return nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return &StoreError{Op: "transaction", Err: ErrNestedTransaction}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, mu: s.mu, inTx: true})
	})
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: "transaction", Err: err}
}
