// Package catalog snapshots located experiment records into a SQL
// database so they can be listed without rescanning the data root.
package catalog

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ethpandaops/rlquery/pkg/config"
)

// Store provides persistence for catalog entries.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	UpsertEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, task, category string) ([]Entry, error)
	ListTasks(ctx context.Context) ([]string, error)
	// PruneEntries deletes the entries of task and category that were not
	// refreshed by the latest pass.
	PruneEntries(ctx context.Context, task, category string, keep []string) (int64, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a catalog Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "catalog"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			s.cfg.MySQL.User,
			s.cfg.MySQL.Password,
			s.cfg.MySQL.Host,
			s.cfg.MySQL.Port,
			s.cfg.MySQL.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening catalog database: %w", err)
	}

	s.db = db

	// Every connection to :memory: opens its own empty database.
	if s.cfg.Driver == "sqlite" && s.cfg.SQLite.Path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("getting sql.DB: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("running catalog migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).
		Info("Catalog database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// entryUpdateColumns are overwritten when an entry with the same task,
// category and run key already exists. Zero values overwrite too.
var entryUpdateColumns = []string{
	"keyed", "dirname", "params_json", "checkpoints", "files",
	"last_modified", "indexed_at",
}

// UpsertEntry inserts an entry or replaces the stored fields of the entry
// with the same task + category + run key.
func (s *store) UpsertEntry(ctx context.Context, e *Entry) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "task"}, {Name: "category"}, {Name: "run_key"},
			},
			DoUpdates: clause.AssignmentColumns(entryUpdateColumns),
		}).
		Create(e)
	if result.Error != nil {
		return fmt.Errorf("upserting entry: %w", result.Error)
	}

	return nil
}

// ListEntries returns the entries of a task, optionally restricted to one
// category, ordered by category and run key.
func (s *store) ListEntries(
	ctx context.Context, task, category string,
) ([]Entry, error) {
	q := s.db.WithContext(ctx).Where("task = ?", task)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var entries []Entry
	if err := q.Order("category ASC, run_key ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	return entries, nil
}

// ListTasks returns the distinct task names in the catalog.
func (s *store) ListTasks(ctx context.Context) ([]string, error) {
	var tasks []string
	if err := s.db.WithContext(ctx).
		Model(&Entry{}).
		Distinct("task").
		Order("task ASC").
		Pluck("task", &tasks).Error; err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	return tasks, nil
}

// PruneEntries implements Store.
func (s *store) PruneEntries(
	ctx context.Context, task, category string, keep []string,
) (int64, error) {
	q := s.db.WithContext(ctx).
		Where("task = ? AND category = ?", task, category)
	if len(keep) > 0 {
		q = q.Where("run_key NOT IN ?", keep)
	}

	result := q.Delete(&Entry{})
	if result.Error != nil {
		return 0, fmt.Errorf("pruning entries: %w", result.Error)
	}

	return result.RowsAffected, nil
}
