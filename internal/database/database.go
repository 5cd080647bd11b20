// Package database stores users and their session tokens in SQLite. Reads go
// through a connection that refuses writes; writes go through a single
// read-write connection.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foxever/sqlite"
	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"gorm.io/gorm"
)

const busyTimeout = 5 * time.Second

// Params is one set of named parameters, referenced as @name in queries.
type Params map[string]interface{}

type Database struct {
	path string
	rw   *gorm.DB
	ro   *gorm.DB
}

// Open connects to the store at path. A missing file is created and receives
// the schema before the read-only connection is opened.
func Open(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	rw, err := connect(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open read-write connection: %w", err)
	}
	d := &Database{path: path, rw: rw}
	if err = d.rw.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		logger.LogWarnf("Could not enable WAL journal for %s: %v", path, err)
	}
	if err = d.ensureSchema(); err != nil {
		_ = d.Close()
		return nil, err
	}

	d.ro, err = connect(path)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to open read-only connection: %w", err)
	}
	if err = d.ro.Exec("PRAGMA query_only = ON").Error; err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to restrict read-only connection: %w", err)
	}

	return d, nil
}

func connect(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: &gormLogger{}})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection, so each pool keeps exactly one.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	if err = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())).Error; err != nil {
		return nil, err
	}

	return db, nil
}

func (d *Database) ensureSchema() error {
	var tables int64
	err := d.rw.Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('user', 'user_token')`).Row().Scan(&tables)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}
	if tables == int64(len(schema)) {
		return nil
	}

	logger.LogInfof("Initializing database schema at %s", d.path)
	return d.rw.Transaction(func(tx *gorm.DB) error {
		for _, statement := range schema {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

// Path returns the backing file.
func (d *Database) Path() string {
	return d.path
}

// Close closes both connections.
func (d *Database) Close() error {
	var result error
	for _, db := range []*gorm.DB{d.ro, d.rw} {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err != nil {
			result = err
			continue
		}
		if err = sqlDB.Close(); err != nil {
			result = err
		}
	}
	return result
}

// Select scans every matching row into dest.
func (d *Database) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return d.ro.WithContext(ctx).Raw(query, normalize(args)...).Scan(dest).Error
}

// SelectSingle scans the first matching row into dest and returns
// apperror.ErrNotFound when nothing matches.
func (d *Database) SelectSingle(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	result := d.ro.WithContext(ctx).Raw(query, normalize(args)...).Scan(dest)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// SelectSingleValue scans the first column of the first row into dest.
func (d *Database) SelectSingleValue(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := d.ro.WithContext(ctx).Raw(query, normalize(args)...).Row().Scan(dest)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.ErrNotFound
	}
	return err
}

func (d *Database) Insert(ctx context.Context, query string, params ...Params) (int64, error) {
	return d.Mutate(ctx, query, params...)
}

func (d *Database) Update(ctx context.Context, query string, params ...Params) (int64, error) {
	return d.Mutate(ctx, query, params...)
}

func (d *Database) Delete(ctx context.Context, query string, params ...Params) (int64, error) {
	return d.Mutate(ctx, query, params...)
}

// Mutate executes query once per parameter set. Several sets run inside one
// transaction.
func (d *Database) Mutate(ctx context.Context, query string, params ...Params) (int64, error) {
	if len(params) <= 1 {
		return exec(d.rw.WithContext(ctx), query, params...)
	}

	var total int64
	err := d.Transaction(ctx, func(tx *Tx) error {
		affected, err := tx.Mutate(query, params...)
		total = affected
		return err
	})
	return total, err
}

// Begin starts a transaction on the read-write connection.
func (d *Database) Begin(ctx context.Context) (*Tx, error) {
	tx := d.rw.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &Tx{db: tx}, nil
}

// Transaction runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (d *Database) Transaction(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			logger.LogErrorIfExists(tx.Rollback())
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx is an open write transaction.
type Tx struct {
	db   *gorm.DB
	done bool
}

func (t *Tx) Insert(query string, params ...Params) (int64, error) {
	return t.Mutate(query, params...)
}

func (t *Tx) Update(query string, params ...Params) (int64, error) {
	return t.Mutate(query, params...)
}

func (t *Tx) Delete(query string, params ...Params) (int64, error) {
	return t.Mutate(query, params...)
}

func (t *Tx) Mutate(query string, params ...Params) (int64, error) {
	if len(params) <= 1 {
		return exec(t.db, query, params...)
	}
	var total int64
	for _, p := range params {
		affected, err := exec(t.db, query, p)
		if err != nil {
			return total, err
		}
		total += affected
	}
	return total, nil
}

// Select reads inside the transaction and therefore sees its own writes.
func (t *Tx) Select(dest interface{}, query string, args ...interface{}) error {
	return t.db.Raw(query, normalize(args)...).Scan(dest).Error
}

func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.Commit().Error
}

// Rollback is a no-op after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.Rollback().Error
}

func exec(db *gorm.DB, query string, params ...Params) (int64, error) {
	var result *gorm.DB
	if len(params) == 0 {
		result = db.Exec(query)
	} else {
		result = db.Exec(query, map[string]interface{}(params[0]))
	}
	return result.RowsAffected, result.Error
}

// normalize unwraps Params so gorm recognises them as named arguments.
func normalize(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, arg := range args {
		if p, ok := arg.(Params); ok {
			out[i] = map[string]interface{}(p)
			continue
		}
		out[i] = arg
	}
	return out
}
