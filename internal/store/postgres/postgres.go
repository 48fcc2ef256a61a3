package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/config"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/observe"
	"github.com/thiagomk/eventdesk/internal/store"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PostgresStore implements store.Store using GORM + PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

// Open connects to the database configured in cfg and starts the pool gauge.
func Open(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: underlying db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	if observe.DBPoolMaxConnections != nil {
		observe.DBPoolMaxConnections.Set(float64(cfg.DBMaxOpenConns))
	}

	// Periodically update the open connections gauge.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if observe.DBPoolOpenConnections != nil {
					observe.DBPoolOpenConnections.Set(float64(sqlDB.Stats().OpenConnections))
				}
			}
		}
	}()

	return &PostgresStore{db: db}, nil
}

// NewFromDB wraps an existing GORM handle. Used by tests that run against an
// in-memory SQLite database.
func NewFromDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema to the database at dbURL.
func Migrate(ctx context.Context, dbURL string) error {
	log.Info("Running migration", "name", "postgres-schema")
	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return fmt.Errorf("migration: connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration: execute schema: %w", err)
	}
	log.Info("Postgres schema migration complete")
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func listRows[R any, E any](ctx context.Context, db *gorm.DB, collection, order string, entity func(R) (E, error)) ([]E, error) {
	var rows []R
	if err := db.WithContext(ctx).Order(order).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", collection, err)
	}
	out := make([]E, 0, len(rows))
	for _, r := range rows {
		e, err := entity(r)
		if err != nil {
			// One malformed row rejects the batch; a partially mapped
			// result must never reach the mirror.
			return nil, &store.MappingError{Collection: collection, Err: err}
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *PostgresStore) update(ctx context.Context, table, resource string, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return &store.ValidationError{Field: "fields", Message: "no fields to update"}
	}
	res := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("postgres: update %s: %w", resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Resource: resource, ID: id.String()}
	}
	return nil
}

func (s *PostgresStore) delete(ctx context.Context, table, resource string, id uuid.UUID, rowPtr any) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(rowPtr)
	if res.Error != nil {
		return fmt.Errorf("postgres: delete %s: %w", resource, res.Error)
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Resource: resource, ID: id.String()}
	}
	return nil
}

// --- Events ---

func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return listRows(ctx, s.db, model.CollectionEvents, "created_at DESC, id", model.EventRow.Entity)
}

func (s *PostgresStore) InsertEvent(ctx context.Context, row model.EventRow) (model.Event, error) {
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Event{}, fmt.Errorf("postgres: insert event: %w", err)
	}
	return row.Entity()
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.update(ctx, model.CollectionEvents, "event", id, fields)
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, model.CollectionEvents, "event", id, &model.EventRow{})
}

// --- Demands ---

func (s *PostgresStore) ListDemands(ctx context.Context) ([]model.Demand, error) {
	return listRows(ctx, s.db, model.CollectionDemands, "created_at DESC, id", model.DemandRow.Entity)
}

func (s *PostgresStore) InsertDemand(ctx context.Context, row model.DemandRow) (model.Demand, error) {
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Demand{}, fmt.Errorf("postgres: insert demand: %w", err)
	}
	return row.Entity()
}

func (s *PostgresStore) UpdateDemand(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.update(ctx, model.CollectionDemands, "demand", id, fields)
}

func (s *PostgresStore) DeleteDemand(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, model.CollectionDemands, "demand", id, &model.DemandRow{})
}

// --- Notes ---

func (s *PostgresStore) ListNotes(ctx context.Context) ([]model.Note, error) {
	return listRows(ctx, s.db, model.CollectionNotes, "priority_date ASC, id", model.NoteRow.Entity)
}

func (s *PostgresStore) InsertNote(ctx context.Context, row model.NoteRow) (model.Note, error) {
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Note{}, fmt.Errorf("postgres: insert note: %w", err)
	}
	return row.Entity()
}

func (s *PostgresStore) UpdateNote(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.update(ctx, model.CollectionNotes, "note", id, fields)
}

func (s *PostgresStore) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, model.CollectionNotes, "note", id, &model.NoteRow{})
}

// --- CRM contacts ---

func (s *PostgresStore) ListContacts(ctx context.Context) ([]model.CRMContact, error) {
	return listRows(ctx, s.db, model.CollectionContacts, "priority_date ASC, id", model.ContactRow.Entity)
}

func (s *PostgresStore) InsertContact(ctx context.Context, row model.ContactRow) (model.CRMContact, error) {
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.CRMContact{}, fmt.Errorf("postgres: insert contact: %w", err)
	}
	return row.Entity()
}

func (s *PostgresStore) UpdateContact(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return s.update(ctx, model.CollectionContacts, "contact", id, fields)
}

func (s *PostgresStore) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, model.CollectionContacts, "contact", id, &model.ContactRow{})
}
