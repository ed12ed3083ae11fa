// Package store persists finished match results through gorm, on SQLite for
// single-host setups or Postgres when a shared database is available.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"age-of-war/server/internal/world"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("store: record not found")
	// ErrDisabled is returned by Open when the driver is "none".
	ErrDisabled = errors.New("store: disabled")
)

// MatchRecord is one finished match.
type MatchRecord struct {
	ID          uint           `json:"-" gorm:"primarykey"`
	MatchID     string         `json:"matchId" gorm:"size:64;uniqueIndex"`
	Mode        string         `json:"mode" gorm:"size:16"`
	WinnerID    string         `json:"winnerId,omitempty" gorm:"size:64"`
	WinnerName  string         `json:"winnerName,omitempty" gorm:"size:128"`
	WinningTeam int            `json:"winningTeam,omitempty"`
	Draw        bool           `json:"draw"`
	Tick        int64          `json:"tick"`
	Roster      datatypes.JSON `json:"roster"`
	FinishedAt  time.Time      `json:"finishedAt" gorm:"index"`
}

// Config selects the backing database.
type Config struct {
	// Driver is sqlite, postgres or none.
	Driver string
	// DSN is a file path (empty for in-memory) for sqlite, or a connection
	// string for postgres.
	DSN    string
	Logger zerolog.Logger
}

// Store wraps a gorm connection.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open connects and migrates the schema.
func Open(cfg Config) (*Store, error) {
	gormCfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:"
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormCfg)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
			} else {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	case "postgres":
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		}), gormCfg)
	case "none":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Driver, err)
	}
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	cfg.Logger.Info().Str("driver", db.Dialector.Name()).Msg("result store ready")
	return &Store{db: db, logger: cfg.Logger, now: time.Now}, nil
}

// SaveResult upserts the record for result.MatchID.
func (s *Store) SaveResult(ctx context.Context, result world.Result) error {
	roster, err := json.Marshal(result.Players)
	if err != nil {
		return fmt.Errorf("store: encode roster: %w", err)
	}
	record := MatchRecord{
		MatchID:     result.MatchID,
		Mode:        string(result.Mode),
		WinnerID:    result.WinnerID,
		WinnerName:  result.WinnerName,
		WinningTeam: result.WinningTeam,
		Draw:        result.Draw,
		Tick:        int64(result.Tick),
		Roster:      datatypes.JSON(roster),
		FinishedAt:  s.now(),
	}
	tx := s.db.WithContext(ctx)
	var existing MatchRecord
	err = tx.Where("match_id = ?", result.MatchID).First(&existing).Error
	switch {
	case err == nil:
		record.ID = existing.ID
		err = tx.Save(&record).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = tx.Create(&record).Error
	}
	if err != nil {
		return fmt.Errorf("store: save result %s: %w", result.MatchID, err)
	}
	return nil
}

// Result loads one record.
func (s *Store) Result(ctx context.Context, matchID string) (MatchRecord, error) {
	var record MatchRecord
	err := s.db.WithContext(ctx).Where("match_id = ?", matchID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MatchRecord{}, ErrNotFound
	}
	if err != nil {
		return MatchRecord{}, fmt.Errorf("store: load %s: %w", matchID, err)
	}
	return record, nil
}

// Recent lists the latest records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []MatchRecord
	if err := s.db.WithContext(ctx).Order("finished_at desc").Order("id desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	return records, nil
}

// Players decodes the roster column.
func (r MatchRecord) Players() ([]world.Player, error) {
	var players []world.Player
	if len(r.Roster) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(r.Roster, &players); err != nil {
		return nil, err
	}
	return players, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
