package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fabrica-cultura/senhas/internal/config"
	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/pkg/logo"
	"github.com/fabrica-cultura/senhas/pkg/storage"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

func TestOpenMemory(t *testing.T) {
	cfg := config.New()
	cfg.Storage.Driver = config.DriverMemory

	b, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	if _, ok := b.Store.(*storage.MemoryStore); !ok {
		t.Errorf("Store = %T, want *storage.MemoryStore", b.Store)
	}
	if _, ok := b.Logos.(logo.DataURLStore); !ok {
		t.Errorf("Logos = %T, want DataURLStore", b.Logos)
	}
	if b.Hub == nil || b.Metrics == nil {
		t.Error("hub or metrics missing")
	}
}

func TestOpenSQLitePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.New()
	cfg.Storage.DSN = filepath.Join(dir, "senhas.db")
	cfg.Logo.Backend = config.LogoDisk
	cfg.Logo.Dir = filepath.Join(dir, "logos")

	b, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.DiskLogos == nil {
		t.Error("disk logo store not set")
	}
	want := ticket.State{Common: 12, Priority: 3, LastUpdate: 99}
	if err := storage.Save(ctx, b.Store, storage.KeyTickets, want); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer closeStore()
	got, status := storage.Load(ctx, store, storage.KeyTickets, ticket.State{})
	if status != storage.StatusFound || got != want {
		t.Errorf("Load = %+v (%s), want %+v", got, status, want)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.New()
	cfg.Storage.Driver = "mongo"
	_, err := Open(context.Background(), cfg)
	var pe *errors.PanelError
	if !errors.As(err, &pe) || pe.Code != "E102" {
		t.Fatalf("err = %v, want E102", err)
	}
}

func TestOpenBadMySQLDSN(t *testing.T) {
	cfg := config.New()
	cfg.Storage.Driver = config.DriverMySQL
	cfg.Storage.DSN = "not a dsn"
	_, _, err := OpenStore(context.Background(), cfg)
	var pe *errors.PanelError
	if !errors.As(err, &pe) || pe.Code != "E100" {
		t.Fatalf("err = %v, want E100", err)
	}
}

func TestNewS3Client(t *testing.T) {
	client := NewS3Client(config.S3Config{Region: "sa-east-1", Endpoint: "http://localhost:9000"})
	opts := client.Options()
	if opts.Region != "sa-east-1" || !opts.UsePathStyle {
		t.Errorf("options = region %q path style %v", opts.Region, opts.UsePathStyle)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := (envCredentials{}).Retrieve(context.Background()); err == nil {
		t.Error("Retrieve without variables should fail")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := (envCredentials{}).Retrieve(context.Background())
	if err != nil || creds.AccessKeyID != "AKID" {
		t.Errorf("Retrieve = %+v, %v", creds, err)
	}
}
