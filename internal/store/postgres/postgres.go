// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already-open database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// AppendEvent opens its own transaction so the per-session advisory lock
// covers the insert until commit.
func (s *PostgresStore) AppendEvent(ctx context.Context, event *model.Event) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.AppendEvent(ctx, event)
	})
}

func (s *PostgresStore) EventsSince(ctx context.Context, sessionID, afterEventID int64, limit int) ([]*model.Event, error) {
	return queryEventsSince(ctx, s.db, sessionID, afterEventID, limit)
}

func (s *PostgresStore) EventsAfter(ctx context.Context, afterEventID int64, limit int) ([]*model.Event, error) {
	return queryEventsAfter(ctx, s.db, afterEventID, limit)
}

func (s *PostgresStore) TouchPresence(ctx context.Context, userID, sessionID, lastEventID int64) error {
	return queryTouchPresence(ctx, s.db, userID, sessionID, lastEventID)
}

func (s *PostgresStore) ListOnline(ctx context.Context, sessionID int64, since time.Time) ([]*model.OnlineUser, error) {
	return queryListOnline(ctx, s.db, sessionID, since)
}

func (s *PostgresStore) MarkIdleOffline(ctx context.Context, before time.Time) (int64, error) {
	return queryMarkIdleOffline(ctx, s.db, before)
}

func (s *PostgresStore) GetGameSession(ctx context.Context, sessionID int64) (*model.GameSession, error) {
	return queryGetGameSession(ctx, s.db, sessionID)
}

func (s *PostgresStore) GetSessionPlayer(ctx context.Context, sessionID, userID int64) (*model.SessionPlayer, error) {
	return queryGetSessionPlayer(ctx, s.db, sessionID, userID)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return queryGetUserByUsername(ctx, s.db, username)
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return queryGetUser(ctx, s.db, userID)
}

func (s *PostgresStore) CreateAuthSession(ctx context.Context, as *model.AuthSession) error {
	return queryCreateAuthSession(ctx, s.db, as)
}

func (s *PostgresStore) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	return queryGetAuthSession(ctx, s.db, token)
}

func (s *PostgresStore) DeleteAuthSession(ctx context.Context, token string) error {
	return queryDeleteAuthSession(ctx, s.db, token)
}

func (s *PostgresStore) GetSessionMap(ctx context.Context, mapID int64) (*model.SessionMap, error) {
	return queryGetSessionMap(ctx, s.db, mapID)
}

func (s *PostgresStore) AddDrawing(ctx context.Context, d *model.Drawing) error {
	return queryAddDrawing(ctx, s.db, d)
}

func (s *PostgresStore) ClearDrawings(ctx context.Context, mapID int64) (int64, error) {
	return queryClearDrawings(ctx, s.db, mapID)
}

func (s *PostgresStore) GetAudioTrack(ctx context.Context, sessionID, trackID int64) (*model.AudioTrack, error) {
	return queryGetAudioTrack(ctx, s.db, sessionID, trackID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) AppendEvent(ctx context.Context, event *model.Event) error {
	return queryAppendEvent(ctx, s.tx, event)
}

func (s *txStore) EventsSince(ctx context.Context, sessionID, afterEventID int64, limit int) ([]*model.Event, error) {
	return queryEventsSince(ctx, s.tx, sessionID, afterEventID, limit)
}

func (s *txStore) EventsAfter(ctx context.Context, afterEventID int64, limit int) ([]*model.Event, error) {
	return queryEventsAfter(ctx, s.tx, afterEventID, limit)
}

func (s *txStore) TouchPresence(ctx context.Context, userID, sessionID, lastEventID int64) error {
	return queryTouchPresence(ctx, s.tx, userID, sessionID, lastEventID)
}

func (s *txStore) ListOnline(ctx context.Context, sessionID int64, since time.Time) ([]*model.OnlineUser, error) {
	return queryListOnline(ctx, s.tx, sessionID, since)
}

func (s *txStore) MarkIdleOffline(ctx context.Context, before time.Time) (int64, error) {
	return queryMarkIdleOffline(ctx, s.tx, before)
}

func (s *txStore) GetGameSession(ctx context.Context, sessionID int64) (*model.GameSession, error) {
	return queryGetGameSession(ctx, s.tx, sessionID)
}

func (s *txStore) GetSessionPlayer(ctx context.Context, sessionID, userID int64) (*model.SessionPlayer, error) {
	return queryGetSessionPlayer(ctx, s.tx, sessionID, userID)
}

func (s *txStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return queryGetUserByUsername(ctx, s.tx, username)
}

func (s *txStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return queryGetUser(ctx, s.tx, userID)
}

func (s *txStore) CreateAuthSession(ctx context.Context, as *model.AuthSession) error {
	return queryCreateAuthSession(ctx, s.tx, as)
}

func (s *txStore) GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error) {
	return queryGetAuthSession(ctx, s.tx, token)
}

func (s *txStore) DeleteAuthSession(ctx context.Context, token string) error {
	return queryDeleteAuthSession(ctx, s.tx, token)
}

func (s *txStore) GetSessionMap(ctx context.Context, mapID int64) (*model.SessionMap, error) {
	return queryGetSessionMap(ctx, s.tx, mapID)
}

func (s *txStore) AddDrawing(ctx context.Context, d *model.Drawing) error {
	return queryAddDrawing(ctx, s.tx, d)
}

func (s *txStore) ClearDrawings(ctx context.Context, mapID int64) (int64, error) {
	return queryClearDrawings(ctx, s.tx, mapID)
}

func (s *txStore) GetAudioTrack(ctx context.Context, sessionID, trackID int64) (*model.AudioTrack, error) {
	return queryGetAudioTrack(ctx, s.tx, sessionID, trackID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
