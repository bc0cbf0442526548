// Package storage implements the crash-safe file-backed document store and the
// process-wide guard serializing read-modify-write sequences over it.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Ritik1652/expriy-date-tracker/internal/model"
)

// Collection file names inside the data directory.
const (
	freshFile      = "fresh_inventory.json"
	expiredFile    = "expired_inventory.json"
	categoriesFile = "categories.json"
	usersFile      = "users.json"
)

// systemCategoryNames is the immutable seed set, in bootstrap order. Index i
// becomes the stable synthetic id "sys_<i>".
var systemCategoryNames = []string{
	model.FallbackCategory, // General
	"Food",
	"Medicine",
	"Documents",
	"Personal Care",
}

// SystemCategories returns the seed set as full records.
func SystemCategories() []model.Category {
	cats := make([]model.Category, 0, len(systemCategoryNames))
	for i, name := range systemCategoryNames {
		cats = append(cats, model.Category{
			ID:    fmt.Sprintf("sys_%d", i),
			Name:  name,
			Type:  model.CategoryTypeSystem,
			Owner: model.SystemOwner,
		})
	}
	return cats
}

// Store persists each collection as one JSON document under dir. Writes are
// atomic (temp file + fsync + rename); reads treat absent or corrupt files as
// the collection's typed empty default, quarantining corrupt ones.
//
// The embedded mutex is the single process-wide guard: services hold it across
// every load-transform-save sequence so no two such sequences interleave. The
// store itself never locks, so nested helpers running under an already-held
// lock cannot deadlock.
type Store struct {
	mu  sync.Mutex
	dir string
	log *zap.Logger
}

// New constructs a Store rooted at dir.
func New(dir string, log *zap.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Lock acquires the process-wide read-modify-write guard.
func (s *Store) Lock() { s.mu.Lock() }

// Unlock releases the guard.
func (s *Store) Unlock() { s.mu.Unlock() }

// Bootstrap idempotently creates the data directory and any missing collection
// files, seeding categories with the system set and everything else with its
// empty default. Safe to call repeatedly.
func (s *Store) Bootstrap() error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	seeds := []struct {
		name string
		doc  any
	}{
		{usersFile, map[string]model.User{}},
		{freshFile, []model.Item{}},
		{expiredFile, []model.Item{}},
		{categoriesFile, SystemCategories()},
	}
	for _, seed := range seeds {
		path := filepath.Join(s.dir, seed.name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", seed.name, err)
		}
		if err := s.saveAtomic(seed.name, seed.doc); err != nil {
			return err
		}
	}
	return nil
}

// LoadFresh returns the fresh inventory collection.
func (s *Store) LoadFresh() []model.Item {
	items := []model.Item{}
	if !s.load(freshFile, &items) {
		return []model.Item{}
	}
	return items
}

// LoadExpired returns the expired inventory collection.
func (s *Store) LoadExpired() []model.Item {
	items := []model.Item{}
	if !s.load(expiredFile, &items) {
		return []model.Item{}
	}
	return items
}

// LoadCategories returns the category collection.
func (s *Store) LoadCategories() []model.Category {
	cats := []model.Category{}
	if !s.load(categoriesFile, &cats) {
		return []model.Category{}
	}
	return cats
}

// LoadUsers returns the user map keyed by username.
func (s *Store) LoadUsers() map[string]model.User {
	users := map[string]model.User{}
	if !s.load(usersFile, &users) {
		return map[string]model.User{}
	}
	return users
}

// SaveFresh persists the fresh inventory collection.
func (s *Store) SaveFresh(items []model.Item) error { return s.saveAtomic(freshFile, items) }

// SaveExpired persists the expired inventory collection.
func (s *Store) SaveExpired(items []model.Item) error { return s.saveAtomic(expiredFile, items) }

// SaveCategories persists the category collection.
func (s *Store) SaveCategories(cats []model.Category) error {
	return s.saveAtomic(categoriesFile, cats)
}

// SaveUsers persists the user map.
func (s *Store) SaveUsers(users map[string]model.User) error {
	return s.saveAtomic(usersFile, users)
}

// load reads one collection document into out and reports whether out holds a
// clean decode. It never surfaces an error: an absent file just means the
// empty default, and an unparsable file is quarantined to <name>.corrupt so
// the next save does not destroy evidence. On false, out may hold a partial
// decode and must be discarded by the caller.
func (s *Store) load(name string, out any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("read collection", zap.String("collection", name), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.quarantine(name, path, err)
		return false
	}
	return true
}

// quarantine moves a corrupt document aside and logs it. Best effort: if the
// rename fails the corrupt file stays in place and the next save overwrites it.
func (s *Store) quarantine(name, path string, cause error) {
	dst := path + ".corrupt"
	if err := os.Rename(path, dst); err != nil {
		s.log.Error("quarantine corrupt collection",
			zap.String("collection", name),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.log.Error("corrupt collection quarantined",
		zap.String("collection", name),
		zap.String("moved_to", dst),
		zap.Error(cause),
	)
}

// saveAtomic writes doc to a temp file in the data directory (same volume, so
// the final rename is atomic), forces it to durable storage, then renames it
// over the target. On any failure the temp file is removed and the original
// document is left untouched; the error is fatal to the caller.
func (s *Store) saveAtomic(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
