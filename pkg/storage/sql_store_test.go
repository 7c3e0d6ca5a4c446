package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLStoreSQLite(t *testing.T) {
	db := openSQLite(t)
	s := NewSQLStore(db)
	if err := s.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	storeContract(t, s)
}

func TestSQLStoreCreateTableIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openSQLite(t), WithSQLTableName("panel_state"))

	for i := 0; i < 2; i++ {
		if err := s.CreateTable(ctx); err != nil {
			t.Fatalf("CreateTable #%d: %v", i+1, err)
		}
	}
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestSQLStoreClosed(t *testing.T) {
	s := NewSQLStore(openSQLite(t))
	s.Close()

	if _, err := s.Get(context.Background(), "k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get after Close = %v, want ErrStoreClosed", err)
	}
}

func TestSQLDialectString(t *testing.T) {
	if DialectSQLite.String() != "sqlite" || DialectMySQL.String() != "mysql" {
		t.Errorf("dialect names = %s, %s", DialectSQLite, DialectMySQL)
	}
	s := NewSQLStore(nil, WithSQLDialect(DialectMySQL))
	if s.Dialect() != DialectMySQL {
		t.Errorf("Dialect = %s", s.Dialect())
	}
}
