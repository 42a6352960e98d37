package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagecraft/render-engine/internal/app/domain/catalog"
	"github.com/pagecraft/render-engine/internal/app/storage"
	"github.com/pagecraft/render-engine/internal/app/storage/memory"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if err := c.Set(ctx, "a", []byte("1"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "b", []byte("2"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("expected miss after expiry")
	}
	if _, ok, _ := c.Get(ctx, "b"); !ok {
		t.Fatal("expected zero-ttl entry to persist")
	}

	if purged := c.PurgeExpired(); purged != 1 {
		t.Fatalf("expected 1 purged entry, got %d", purged)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", c.Len())
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	_ = c.Set(ctx, "catalog:t1:pagetypes", []byte("x"), 0)
	_ = c.Set(ctx, "catalog:t1:prefixes", []byte("y"), 0)
	_ = c.Set(ctx, "catalog:t2:pagetypes", []byte("z"), 0)

	if err := c.DeletePrefix(ctx, "catalog:t1:"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "catalog:t1:pagetypes"); ok {
		t.Fatal("expected t1 entries gone")
	}
	if _, ok, _ := c.Get(ctx, "catalog:t2:pagetypes"); !ok {
		t.Fatal("expected t2 entries untouched")
	}
}

// countingCatalog wraps a store and counts reads that reach it.
type countingCatalog struct {
	storage.CatalogStore
	reads atomic.Int64
}

func (c *countingCatalog) ListPrefixes(ctx context.Context, tenantID string) ([]catalog.PrefixConfig, error) {
	c.reads.Add(1)
	return c.CatalogStore.ListPrefixes(ctx, tenantID)
}

func TestCatalogCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	counting := &countingCatalog{CatalogStore: store}
	cached := NewCatalogCache(counting, NewMemory(), 0, nil)

	if _, err := cached.CreatePrefix(ctx, catalog.PrefixConfig{
		TenantID: "t1", Prefix: "asesores", Level: catalog.LevelDirectory,
		DirectoryCode: "asesores", SingleCode: "asesor_single", Active: true,
	}); err != nil {
		t.Fatalf("CreatePrefix: %v", err)
	}

	for i := 0; i < 3; i++ {
		prefixes, err := cached.ListPrefixes(ctx, "t1")
		if err != nil {
			t.Fatalf("ListPrefixes: %v", err)
		}
		if len(prefixes) != 1 || prefixes[0].Prefix != "asesores" {
			t.Fatalf("unexpected prefixes: %+v", prefixes)
		}
	}
	if got := counting.reads.Load(); got != 1 {
		t.Fatalf("expected 1 store read, got %d", got)
	}

	// A write invalidates and the next read goes back to the store.
	if _, err := cached.CreatePrefix(ctx, catalog.PrefixConfig{
		TenantID: "t1", Prefix: "videos", Level: catalog.LevelListing,
		ListingCode: "videos", CategoryCode: "video_category", SingleCode: "video_single", Active: true,
	}); err != nil {
		t.Fatalf("CreatePrefix: %v", err)
	}
	prefixes, err := cached.ListPrefixes(ctx, "t1")
	if err != nil {
		t.Fatalf("ListPrefixes: %v", err)
	}
	if len(prefixes) != 2 {
		t.Fatalf("expected 2 prefixes after invalidation, got %d", len(prefixes))
	}
	if got := counting.reads.Load(); got != 2 {
		t.Fatalf("expected 2 store reads, got %d", got)
	}
}
