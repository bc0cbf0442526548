package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Ritik1652/expriy-date-tracker/internal/errs"
	"github.com/Ritik1652/expriy-date-tracker/internal/idgen"
	"github.com/Ritik1652/expriy-date-tracker/internal/model"
	"github.com/Ritik1652/expriy-date-tracker/internal/storage"
)

// CategoryService defines the category registry operations.
type CategoryService interface {
	// GetCategories merges the system set with username's custom categories.
	GetCategories(ctx context.Context, username string) ([]model.Category, error)
	// AddCategory creates a custom category owned by username.
	AddCategory(ctx context.Context, name, username string) (model.Category, error)
	// DeleteCategory removes username's custom category and migrates orphans.
	DeleteCategory(ctx context.Context, name, username string) error
}

type CategoryServiceImpl struct {
	store *storage.Store
	ids   *idgen.Generator
}

// NewCategoryService constructs CategoryService over the given store.
func NewCategoryService(store *storage.Store, ids *idgen.Generator) *CategoryServiceImpl {
	return &CategoryServiceImpl{store: store, ids: ids}
}

// GetCategories returns the fixed system set plus the caller's custom
// categories, sorted by name. A custom category whose name case-insensitively
// matches a system one is shadowed: the system variant always wins.
func (s *CategoryServiceImpl) GetCategories(_ context.Context, username string) ([]model.Category, error) {
	s.store.Lock()
	defer s.store.Unlock()

	merged := storage.SystemCategories()
	for _, c := range s.store.LoadCategories() {
		if c.Type != model.CategoryTypeCustom || c.Owner != username {
			continue
		}
		if shadowsAny(merged, c.Name) {
			continue
		}
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged, nil
}

// AddCategory creates a custom category after enforcing case-insensitive
// uniqueness against every system category and against the caller's own
// customs. Other users' categories do not constrain the name.
func (s *CategoryServiceImpl) AddCategory(_ context.Context, name, username string) (model.Category, error) {
	s.store.Lock()
	defer s.store.Unlock()

	cats := s.store.LoadCategories()
	for _, c := range cats {
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if c.Type == model.CategoryTypeSystem {
			return model.Category{}, fmt.Errorf("system category %q: %w", c.Name, errs.ErrAlreadyExists)
		}
		if c.Owner == username {
			return model.Category{}, fmt.Errorf("category %q: %w", c.Name, errs.ErrAlreadyExists)
		}
	}

	cat := model.Category{
		ID:    strconv.FormatInt(s.ids.Next(), 10),
		Name:  name,
		Type:  model.CategoryTypeCustom,
		Owner: username,
	}
	if err := s.store.SaveCategories(append(cats, cat)); err != nil {
		return model.Category{}, fmt.Errorf("persist categories: %w", err)
	}
	return cat, nil
}

// DeleteCategory removes the custom category with exactly that name owned by
// username, then reassigns the owner's items referencing it (in both inventory
// collections) to the fallback category so no item is left orphaned. System
// categories and other users' categories yield ErrPermissionDenied without
// revealing whether they exist.
func (s *CategoryServiceImpl) DeleteCategory(_ context.Context, name, username string) error {
	s.store.Lock()
	defer s.store.Unlock()

	cats := s.store.LoadCategories()
	var target *model.Category
	for i := range cats {
		c := &cats[i]
		if c.Name == name && c.Owner == username && c.Type == model.CategoryTypeCustom {
			target = c
			break
		}
	}
	if target == nil {
		return fmt.Errorf("category %q: %w", name, errs.ErrPermissionDenied)
	}

	kept := make([]model.Category, 0, len(cats)-1)
	for _, c := range cats {
		if c.ID == target.ID {
			continue
		}
		kept = append(kept, c)
	}
	if err := s.store.SaveCategories(kept); err != nil {
		return fmt.Errorf("persist categories: %w", err)
	}

	if err := s.migrateOrphans(name, username, s.store.LoadFresh, s.store.SaveFresh); err != nil {
		return err
	}
	return s.migrateOrphans(name, username, s.store.LoadExpired, s.store.SaveExpired)
}

// migrateOrphans reassigns username's items in one collection from the deleted
// category to the fallback, saving only when something changed. Runs under the
// guard already held by DeleteCategory.
func (s *CategoryServiceImpl) migrateOrphans(name, username string, load func() []model.Item, save func([]model.Item) error) error {
	items := load()
	dirty := false
	for i := range items {
		if items[i].Owner == username && items[i].Category == name {
			items[i].Category = model.FallbackCategory
			dirty = true
		}
	}
	if !dirty {
		return nil
	}
	if err := save(items); err != nil {
		return fmt.Errorf("migrate orphaned items: %w", err)
	}
	return nil
}

// shadowsAny reports whether name case-insensitively matches any existing name.
func shadowsAny(cats []model.Category, name string) bool {
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
