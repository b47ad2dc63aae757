package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// Record is one connection as it is kept in the database.
type Record struct {
	Entity

	UUID     string `gorm:"unique;size:36"`
	ClientID uint64 `gorm:"not null"`
	EntityID uint32

	ColorR float32
	ColorG float32
	ColorB float32

	Connected    time.Time
	Disconnected *time.Time

	Shots  int
	Hits   int
	Points int
}

type Stats struct {
	Shots  int
	Hits   int
	Points int
}

type ChangeKind uint8

const (
	ChangeConnected ChangeKind = iota
	ChangeDisconnected
)

// Change is something the store should write. The simulation raises these
// and a separate goroutine applies them so the tick never waits on disk.
type Change struct {
	Kind     ChangeKind
	Identity Identity
	Color    [3]float32
	Stats    Stats
	At       time.Time
}

type Store struct {
	db *gorm.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not open session store %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("could not migrate session store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Apply(ctx context.Context, change Change) error {
	db := s.db.WithContext(ctx)
	identity := change.Identity

	switch change.Kind {
	case ChangeConnected:
		record := Record{
			UUID:      identity.Record.String(),
			ClientID:  uint64(identity.Client),
			EntityID:  uint32(identity.Entity),
			ColorR:    change.Color[0],
			ColorG:    change.Color[1],
			ColorB:    change.Color[2],
			Connected: change.At,
		}
		if err := db.Create(&record).Error; err != nil {
			return fmt.Errorf("could not record connection of %d: %w", identity.Client, err)
		}
	case ChangeDisconnected:
		at := change.At
		err := db.Model(&Record{}).
			Where("uuid = ?", identity.Record.String()).
			Updates(map[string]interface{}{
				"disconnected": &at,
				"shots":        change.Stats.Shots,
				"hits":         change.Stats.Hits,
				"points":       change.Stats.Points,
			}).Error
		if err != nil {
			return fmt.Errorf("could not record disconnection of %d: %w", identity.Client, err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var record Record
	err := s.db.WithContext(ctx).Where("uuid = ?", id.String()).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Recent returns the newest connections first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Order("connected desc").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Run applies changes until ctx is done. Failed writes are logged and
// skipped.
func (s *Store) Run(ctx context.Context, changes <-chan Change) error {
	for {
		select {
		case change := <-changes:
			if err := s.Apply(ctx, change); err != nil {
				log.Error().Err(err).Msg("session store write failed")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
