package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesFileAndSchema(t *testing.T) {
	db := openTestDatabase(t)
	if _, err := os.Stat(db.Path()); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	var columns []struct {
		Name string `gorm:"column:name"`
		Type string `gorm:"column:type"`
	}
	if err := db.Select(context.Background(), &columns, "SELECT name, type FROM pragma_table_info('user')"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	want := []struct{ name, typ string }{
		{"id", "TEXT"}, {"exchange_id", "TEXT"}, {"exchange_environment", "TEXT"}, {"telegram_id", "INTEGER"},
		{"exchange_api_key", "TEXT"}, {"exchange_api_secret", "TEXT"}, {"sub_account_id", "INTEGER"}, {"data", "TEXT"},
	}
	if len(columns) != len(want) {
		t.Fatalf("user has %d columns, want %d", len(columns), len(want))
	}
	for i, w := range want {
		if columns[i].Name != w.name || columns[i].Type != w.typ {
			t.Errorf("column %d = %s %s, want %s %s", i, columns[i].Name, columns[i].Type, w.name, w.typ)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err = db.Insert(ctx, "INSERT INTO user_token (token, user_id) VALUES (@token, @user_id)", Params{"token": "t1", "user_id": "u1"}); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	var count int64
	if err = db.SelectSingleValue(ctx, &count, "SELECT COUNT(*) FROM user_token"); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d after reopen, want 1", count)
	}
}

func TestSelectSingleNotFound(t *testing.T) {
	db := openTestDatabase(t)
	var row User
	err := db.SelectSingle(context.Background(), &row, "SELECT * FROM user WHERE id = ?", "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SelectSingle() error = %v, want ErrNotFound", err)
	}

	var value string
	err = db.SelectSingleValue(context.Background(), &value, "SELECT id FROM user WHERE id = ?", "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SelectSingleValue() error = %v, want ErrNotFound", err)
	}
}

func TestBatchInsertAndSelect(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	affected, err := db.Insert(ctx, "INSERT INTO user_token (token, user_id) VALUES (@token, @user_id)",
		Params{"token": "a", "user_id": "u1"},
		Params{"token": "b", "user_id": "u1"},
		Params{"token": "c", "user_id": "u2"},
	)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if affected != 3 {
		t.Errorf("affected = %d, want 3", affected)
	}

	var tokens []UserToken
	if err = db.Select(ctx, &tokens, "SELECT * FROM user_token WHERE user_id = @user_id ORDER BY token", Params{"user_id": "u1"}); err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 2 || tokens[0].Token != "a" || tokens[1].Token != "b" {
		t.Errorf("tokens = %+v", tokens)
	}

	deleted, err := db.Delete(ctx, "DELETE FROM user_token WHERE user_id = @user_id", Params{"user_id": "u1"})
	if err != nil || deleted != 2 {
		t.Errorf("Delete() = %d, %v", deleted, err)
	}
}

func TestBatchIsAtomic(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	_, err := db.Insert(ctx, "INSERT INTO user_token (token, user_id) VALUES (@token, @user_id)",
		Params{"token": "dup", "user_id": "u1"},
		Params{"token": "dup", "user_id": "u2"},
	)
	if err == nil {
		t.Fatal("expected a primary key violation")
	}

	var count int64
	if err = db.SelectSingleValue(ctx, &count, "SELECT COUNT(*) FROM user_token"); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d after failed batch, want 0", count)
	}
}

func TestTransactionRollback(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.Insert("INSERT INTO user (id, exchange_id) VALUES (@id, @exchange_id)", Params{"id": "u1", "exchange_id": "demo"}); err != nil {
			return err
		}
		var rows []User
		if err := tx.Select(&rows, "SELECT * FROM user"); err != nil {
			return err
		}
		if len(rows) != 1 {
			t.Errorf("transaction does not see its own write")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v", err)
	}

	var count int64
	_ = db.SelectSingleValue(ctx, &count, "SELECT COUNT(*) FROM user")
	if count != 0 {
		t.Errorf("rolled back row is visible")
	}
}

func TestExplicitCommit(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = tx.Insert("INSERT INTO user (id) VALUES (@id)", Params{"id": "u1"}); err != nil {
		t.Fatal(err)
	}
	if err = tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err = tx.Rollback(); err != nil {
		t.Errorf("Rollback() after Commit() = %v", err)
	}

	var id string
	if err = db.SelectSingleValue(ctx, &id, "SELECT id FROM user"); err != nil || id != "u1" {
		t.Errorf("SelectSingleValue() = %q, %v", id, err)
	}
}

func TestReadOnlyConnectionRejectsWrites(t *testing.T) {
	db := openTestDatabase(t)
	err := db.ro.Exec("INSERT INTO user (id) VALUES ('x')").Error
	if err == nil {
		t.Fatal("read-only connection accepted a write")
	}
}
