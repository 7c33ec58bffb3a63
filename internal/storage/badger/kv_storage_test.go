package badger

import (
	"context"
	"encoding/json"
	"testing"

	common "github.com/bobmcallan/copilot-portal/internal/common"
	"github.com/bobmcallan/copilot-portal/internal/config"
)

func newTestKV(t *testing.T) *KVStorage {
	t.Helper()

	logger := common.NewSilentLogger()
	db, err := NewBadgerDB(logger, &config.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewKVStorage(db, logger)
}

func TestKVStorage_SetAndGet(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "investment-copilot-storage", `{"market":"NSE"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "investment-copilot-storage")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != `{"market":"NSE"}` {
		t.Errorf("unexpected value: %s", val)
	}
}

func TestKVStorage_GetMissingKey(t *testing.T) {
	kv := newTestKV(t)

	if _, err := kv.Get(context.Background(), "never-written"); err == nil {
		t.Error("expected error for missing key, got nil")
	}
}

func TestKVStorage_SetOverwrites(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "investment-copilot-storage", `{"market":"NSE"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, "investment-copilot-storage", `{"market":"US"}`); err != nil {
		t.Fatalf("overwriting Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "investment-copilot-storage")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != `{"market":"US"}` {
		t.Errorf("old value survived the overwrite: %s", val)
	}
}

func TestKVStorage_Delete(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "investment-copilot-storage", "{}"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Delete(ctx, "investment-copilot-storage"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, "investment-copilot-storage"); err == nil {
		t.Error("expected error after delete, got nil")
	}

	// Deleting an absent key succeeds, which is what makes the store's
	// logout path idempotent.
	if err := kv.Delete(ctx, "investment-copilot-storage"); err != nil {
		t.Errorf("deleting an absent key should not error: %v", err)
	}
}

func TestKVStorage_GetAll(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	pairs := map[string]string{
		"investment-copilot-storage": `{"market":"NSE"}`,
		"last-migration":             "3",
	}
	for k, v := range pairs {
		if err := kv.Set(ctx, k, v); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != len(pairs) {
		t.Fatalf("expected %d entries, got %d", len(pairs), len(all))
	}
	for k, v := range pairs {
		if all[k] != v {
			t.Errorf("%s = %q, want %q", k, all[k], v)
		}
	}
}

func TestKVStorage_GetAllEmpty(t *testing.T) {
	kv := newTestKV(t)

	all, err := kv.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll on empty store failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected 0 entries, got %d", len(all))
	}
}

// The production record round-trips through badger unchanged: what the
// state store persists is a single JSON document.
func TestKVStorage_AppStateRoundTrip(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	state := map[string]interface{}{
		"market":             "US",
		"investmentStrategy": "swing",
		"spreadsheetId":      "sheet-1",
		"portfolio": []map[string]interface{}{
			{"symbol": "AAPL", "addedAt": 150.0, "addedDate": "2024-01-01T00:00:00Z"},
		},
	}
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := kv.Set(ctx, "investment-copilot-storage", string(data)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	raw, err := kv.Get(ctx, "investment-copilot-storage")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var restored map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &restored); err != nil {
		t.Fatalf("persisted value is not valid JSON: %v", err)
	}
	if restored["market"] != "US" || restored["spreadsheetId"] != "sheet-1" {
		t.Errorf("round trip lost fields: %v", restored)
	}
}
