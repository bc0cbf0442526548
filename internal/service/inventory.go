// Package service contains application services for inventory, categories and
// authentication. Every operation acquires the store guard once and performs
// its whole load-transform-save sequence under it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ritik1652/expriy-date-tracker/internal/idgen"
	"github.com/Ritik1652/expriy-date-tracker/internal/model"
	"github.com/Ritik1652/expriy-date-tracker/internal/storage"
)

// retentionDays is how long an expired item is kept before the sweep purges it.
const retentionDays = 30

// AddItemInput carries the caller-validated fields for a new item.
type AddItemInput struct {
	Name       string
	ExpiryDate string
	Category   string
}

// InventoryService defines the inventory lifecycle operations.
type InventoryService interface {
	// GetInventory runs the lifecycle sweep and returns the caller's view.
	GetInventory(ctx context.Context, username string) (model.Inventory, error)
	// AddItem appends a new fresh item owned by username.
	AddItem(ctx context.Context, in AddItemInput, username string) (model.Item, error)
	// DeleteItem removes a fresh item if it is owned by username.
	DeleteItem(ctx context.Context, itemID int64, username string) (bool, error)
}

type InventoryServiceImpl struct {
	store *storage.Store
	ids   *idgen.Generator
	now   func() time.Time
}

// NewInventoryService constructs InventoryService over the given store.
func NewInventoryService(store *storage.Store, ids *idgen.Generator) *InventoryServiceImpl {
	return &InventoryServiceImpl{store: store, ids: ids, now: time.Now}
}

// GetInventory loads both inventory collections, self-heals missing categories,
// moves freshly expired items to the expired set, purges items past the
// retention window, persists only if something changed, and returns the items
// owned by username in storage order.
func (s *InventoryServiceImpl) GetInventory(_ context.Context, username string) (model.Inventory, error) {
	s.store.Lock()
	defer s.store.Unlock()

	fresh, expired, err := s.sweep()
	if err != nil {
		return model.Inventory{}, err
	}
	return model.Inventory{
		Fresh:   ownedBy(fresh, username),
		Expired: ownedBy(expired, username),
	}, nil
}

// sweep runs the lifecycle pipeline over both collections. Caller holds the
// store guard.
func (s *InventoryServiceImpl) sweep() (fresh, expired []model.Item, err error) {
	allFresh := s.store.LoadFresh()
	allExpired := s.store.LoadExpired()

	now := s.now()
	today := now.Format(model.DateLayout)
	dirty := false

	// Fresh pass: heal missing categories, archive anything past its date.
	// The comparison is lexicographic, valid for same-format ISO dates; a
	// malformed string is still just a string here, so nothing can be lost
	// from the fresh set by this step.
	fresh = make([]model.Item, 0, len(allFresh))
	for _, item := range allFresh {
		if item.Category == "" {
			item.Category = model.FallbackCategory
			dirty = true
		}
		if item.ExpiryDate != "" && item.ExpiryDate < today {
			item.ArchivedAt = today
			allExpired = append(allExpired, item)
			dirty = true
			continue
		}
		fresh = append(fresh, item)
	}

	// Expired pass: heal categories, then purge. Retention math needs a real
	// date, so this pass parses strictly; records whose date cannot be parsed
	// are corrupt beyond healing and are dropped for good.
	expired = make([]model.Item, 0, len(allExpired))
	for _, item := range allExpired {
		if item.Category == "" {
			item.Category = model.FallbackCategory
			dirty = true
		}
		expDate, perr := time.Parse(model.DateLayout, item.ExpiryDate)
		if perr != nil {
			dirty = true
			continue
		}
		if cutoff := expDate.AddDate(0, 0, retentionDays); !now.Before(cutoff) {
			dirty = true
			continue
		}
		expired = append(expired, item)
	}

	if dirty {
		// Two independent atomic writes, not one transaction: a crash in
		// between leaves the collections transiently inconsistent and the
		// next sweep converges them.
		if err := s.store.SaveFresh(fresh); err != nil {
			return nil, nil, fmt.Errorf("persist fresh inventory: %w", err)
		}
		if err := s.store.SaveExpired(expired); err != nil {
			return nil, nil, fmt.Errorf("persist expired inventory: %w", err)
		}
	}
	return fresh, expired, nil
}

// AddItem validates input, stamps identity and creation date, and appends the
// item to the fresh collection.
func (s *InventoryServiceImpl) AddItem(_ context.Context, in AddItemInput, username string) (model.Item, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.ExpiryDate == "" {
		return model.Item{}, errors.New("validation: empty name/expiry_date")
	}
	category := in.Category
	if category == "" {
		category = model.FallbackCategory
	}

	item := model.Item{
		ID:         s.ids.Next(),
		Name:       name,
		ExpiryDate: in.ExpiryDate,
		Category:   category,
		Owner:      username,
		AddedAt:    s.now().Format(model.DateLayout),
	}

	s.store.Lock()
	defer s.store.Unlock()

	fresh := append(s.store.LoadFresh(), item)
	if err := s.store.SaveFresh(fresh); err != nil {
		return model.Item{}, fmt.Errorf("persist fresh inventory: %w", err)
	}
	return item, nil
}

// DeleteItem removes the fresh item matching both id and owner. A mismatch on
// either is reported as false, never as an error — an item under a different
// owner looks exactly like a missing one.
func (s *InventoryServiceImpl) DeleteItem(_ context.Context, itemID int64, username string) (bool, error) {
	s.store.Lock()
	defer s.store.Unlock()

	fresh := s.store.LoadFresh()
	kept := make([]model.Item, 0, len(fresh))
	for _, item := range fresh {
		if item.ID == itemID && item.Owner == username {
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == len(fresh) {
		return false, nil
	}
	if err := s.store.SaveFresh(kept); err != nil {
		return false, fmt.Errorf("persist fresh inventory: %w", err)
	}
	return true, nil
}

// ownedBy filters items to one owner, preserving order.
func ownedBy(items []model.Item, username string) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.Owner == username {
			out = append(out, item)
		}
	}
	return out
}
