package service

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Ritik1652/expriy-date-tracker/internal/idgen"
	"github.com/Ritik1652/expriy-date-tracker/internal/model"
	"github.com/Ritik1652/expriy-date-tracker/internal/storage"
)

func newTestStore(t *testing.T) (*storage.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st := storage.New(dir, zap.NewNop())
	if err := st.Bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return st, dir
}

func isoDaysAgo(days int) string {
	return time.Now().AddDate(0, 0, -days).Format(model.DateLayout)
}

func TestGetInventory_MovesExpiredItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seed := model.Item{ID: 1, Name: "milk", ExpiryDate: isoDaysAgo(1), Category: "Food", Owner: "alice", AddedAt: isoDaysAgo(3)}
	if err := st.SaveFresh([]model.Item{seed}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(inv.Fresh) != 0 {
		t.Fatalf("fresh should be empty, got %+v", inv.Fresh)
	}
	if len(inv.Expired) != 1 {
		t.Fatalf("expired should hold exactly the seeded item, got %+v", inv.Expired)
	}
	got := inv.Expired[0]
	if got.ID != seed.ID || got.Name != seed.Name {
		t.Fatalf("wrong item archived: %+v", got)
	}
	if today := time.Now().Format(model.DateLayout); got.ArchivedAt != today {
		t.Fatalf("archived_at=%q, want %q", got.ArchivedAt, today)
	}

	// The move is persisted, not just reflected in the return value.
	if n := len(st.LoadFresh()); n != 0 {
		t.Fatalf("persisted fresh should be empty, has %d items", n)
	}
	if n := len(st.LoadExpired()); n != 1 {
		t.Fatalf("persisted expired should have 1 item, has %d", n)
	}
}

func TestGetInventory_ItemDueTodayStaysFresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seed := model.Item{ID: 1, Name: "yogurt", ExpiryDate: isoDaysAgo(0), Category: "Food", Owner: "alice"}
	if err := st.SaveFresh([]model.Item{seed}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(inv.Fresh) != 1 || len(inv.Expired) != 0 {
		t.Fatalf("item expiring today must stay fresh: %+v", inv)
	}
}

func TestGetInventory_PurgesBeyondRetention(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	old := model.Item{ID: 1, Name: "bread", ExpiryDate: isoDaysAgo(40), Category: "Food", Owner: "alice", ArchivedAt: isoDaysAgo(39)}
	recent := model.Item{ID: 2, Name: "cheese", ExpiryDate: isoDaysAgo(5), Category: "Food", Owner: "alice", ArchivedAt: isoDaysAgo(4)}
	if err := st.SaveExpired([]model.Item{old, recent}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(inv.Expired) != 1 || inv.Expired[0].ID != recent.ID {
		t.Fatalf("want only the recent item retained, got %+v", inv.Expired)
	}
	if n := len(st.LoadExpired()); n != 1 {
		t.Fatalf("purge must be persisted, %d items on disk", n)
	}
}

func TestGetInventory_PurgesCorruptExpiredRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seed := []model.Item{
		{ID: 1, Name: "mystery", ExpiryDate: "not-a-date", Owner: "alice"},
		{ID: 2, Name: "nodate", Owner: "alice"},
		{ID: 3, Name: "fine", ExpiryDate: isoDaysAgo(2), Category: "Food", Owner: "alice"},
	}
	if err := st.SaveExpired(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(inv.Expired) != 1 || inv.Expired[0].ID != 3 {
		t.Fatalf("corrupt expired records must be dropped, got %+v", inv.Expired)
	}
}

func TestGetInventory_MalformedFreshDateNeverDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seed := []model.Item{
		{ID: 1, Name: "blank-date", ExpiryDate: "", Category: "Food", Owner: "alice"},
		{ID: 2, Name: "garbage-date", ExpiryDate: "zzzz-99-99", Category: "Food", Owner: "alice"},
	}
	if err := st.SaveFresh(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(inv.Fresh) != 2 {
		t.Fatalf("malformed fresh items must be retained, got %+v", inv.Fresh)
	}
}

func TestGetInventory_SelfHealsMissingCategory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	freshSeed := []model.Item{{ID: 1, Name: "milk", ExpiryDate: isoDaysAgo(-10), Owner: "alice"}}
	expiredSeed := []model.Item{{ID: 2, Name: "bread", ExpiryDate: isoDaysAgo(2), Owner: "alice"}}
	if err := st.SaveFresh(freshSeed); err != nil {
		t.Fatalf("seed fresh: %v", err)
	}
	if err := st.SaveExpired(expiredSeed); err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if inv.Fresh[0].Category != model.FallbackCategory {
		t.Fatalf("fresh category not healed: %+v", inv.Fresh[0])
	}
	if inv.Expired[0].Category != model.FallbackCategory {
		t.Fatalf("expired category not healed: %+v", inv.Expired[0])
	}
	if got := st.LoadFresh()[0].Category; got != model.FallbackCategory {
		t.Fatalf("healed category not persisted, got %q", got)
	}
}

func TestGetInventory_SecondRunIsReadOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dir := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seed := []model.Item{
		{ID: 1, Name: "milk", ExpiryDate: isoDaysAgo(1), Owner: "alice"},
		{ID: 2, Name: "rice", ExpiryDate: isoDaysAgo(-100), Owner: "alice"},
	}
	if err := st.SaveFresh(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	freshBytes := readCollection(t, dir, "fresh_inventory.json")
	expiredBytes := readCollection(t, dir, "expired_inventory.json")

	second, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("sweep is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if string(readCollection(t, dir, "fresh_inventory.json")) != string(freshBytes) {
		t.Fatalf("second run rewrote the fresh collection")
	}
	if string(readCollection(t, dir, "expired_inventory.json")) != string(expiredBytes) {
		t.Fatalf("second run rewrote the expired collection")
	}
}

func TestGetInventory_FiltersByOwnerPreservingOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	future := isoDaysAgo(-30)
	seed := []model.Item{
		{ID: 1, Name: "a-milk", ExpiryDate: future, Category: "Food", Owner: "alice"},
		{ID: 2, Name: "b-jam", ExpiryDate: future, Category: "Food", Owner: "bob"},
		{ID: 3, Name: "a-tea", ExpiryDate: future, Category: "Food", Owner: "alice"},
	}
	if err := st.SaveFresh(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inv, err := svc.GetInventory(ctx, "alice")
	if err != nil {
		t.Fatalf("GetInventory: %v", err)
	}
	if len(inv.Fresh) != 2 || inv.Fresh[0].ID != 1 || inv.Fresh[1].ID != 3 {
		t.Fatalf("want alice's items in storage order, got %+v", inv.Fresh)
	}
}

func TestAddItem_DefaultsAndValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	if _, err := svc.AddItem(ctx, AddItemInput{Name: "   ", ExpiryDate: "2030-01-01"}, "alice"); err == nil {
		t.Fatalf("want validation error on blank name")
	}
	if _, err := svc.AddItem(ctx, AddItemInput{Name: "milk"}, "alice"); err == nil {
		t.Fatalf("want validation error on missing expiry_date")
	}

	item, err := svc.AddItem(ctx, AddItemInput{Name: "  milk  ", ExpiryDate: "2030-01-01"}, "alice")
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.Name != "milk" {
		t.Fatalf("name not trimmed: %q", item.Name)
	}
	if item.Category != model.FallbackCategory {
		t.Fatalf("category not defaulted: %q", item.Category)
	}
	if item.Owner != "alice" {
		t.Fatalf("owner=%q", item.Owner)
	}
	if today := time.Now().Format(model.DateLayout); item.AddedAt != today {
		t.Fatalf("added_at=%q, want %q", item.AddedAt, today)
	}
	if item.ID == 0 {
		t.Fatalf("item id not assigned")
	}

	persisted := st.LoadFresh()
	if len(persisted) != 1 || persisted[0].ID != item.ID {
		t.Fatalf("item not persisted: %+v", persisted)
	}
}

func TestAddItem_RapidIDsDistinct(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, _ := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seen := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		item, err := svc.AddItem(ctx, AddItemInput{Name: "n", ExpiryDate: "2030-01-01"}, "alice")
		if err != nil {
			t.Fatalf("AddItem %d: %v", i, err)
		}
		if seen[item.ID] {
			t.Fatalf("duplicate id %d", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestDeleteItem_OwnerScoped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dir := newTestStore(t)
	svc := NewInventoryService(st, idgen.New())

	seed := []model.Item{{ID: 42, Name: "milk", ExpiryDate: "2030-01-01", Category: "Food", Owner: "alice"}}
	if err := st.SaveFresh(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := readCollection(t, dir, "fresh_inventory.json")

	// Bob cannot delete Alice's item; outcome is false, not an error.
	ok, err := svc.DeleteItem(ctx, 42, "bob")
	if err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if ok {
		t.Fatalf("cross-user delete must report false")
	}
	if string(readCollection(t, dir, "fresh_inventory.json")) != string(before) {
		t.Fatalf("failed delete must not rewrite the collection")
	}

	ok, err = svc.DeleteItem(ctx, 42, "alice")
	if err != nil {
		t.Fatalf("DeleteItem(owner): %v", err)
	}
	if !ok {
		t.Fatalf("owner delete must succeed")
	}
	if n := len(st.LoadFresh()); n != 0 {
		t.Fatalf("item still present after delete")
	}
}

func readCollection(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}
