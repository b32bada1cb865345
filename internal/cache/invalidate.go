package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// captureSuffixes are the file names Save produces. Clear and Purge touch
// nothing else in the directory.
var captureSuffixes = []string{".meta.json", ".meta.json.tmp", ".body"}

func isCaptureFile(name string) bool {
	for _, suf := range captureSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// Clear removes every capture in the store and returns how many files went.
// Other files in the directory are left alone.
func (s *Store) Clear(_ context.Context) (int, error) {
	if err := s.ensureDir(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, d := range entries {
		if d.IsDir() || !isCaptureFile(d.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, d.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// PurgePolicy selects captures for Purge. An entry goes when it is older
// than MaxAge or falls outside the KeepPerQuery newest of its query.
type PurgePolicy struct {
	// MaxAge is ignored when zero.
	MaxAge time.Duration
	// KeepPerQuery is ignored when zero. Entries without a query name are
	// grouped together.
	KeepPerQuery int
	// Query limits the purge to one query name.
	Query string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Purge deletes the captures the policy selects and returns their entries,
// newest first.
func (s *Store) Purge(ctx context.Context, p PurgePolicy) ([]Entry, error) {
	if p.MaxAge < 0 || p.KeepPerQuery < 0 {
		return nil, fmt.Errorf("purge: negative policy %+v", p)
	}
	if p.MaxAge == 0 && p.KeepPerQuery == 0 {
		return nil, nil
	}
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().UTC().Add(-p.MaxAge)
	seen := map[string]int{}
	var purged []Entry
	var errs []error
	for _, e := range entries {
		if p.Query != "" && e.Query != p.Query {
			continue
		}
		seen[e.Query]++
		expired := p.MaxAge > 0 && e.SavedAt.Before(cutoff)
		surplus := p.KeepPerQuery > 0 && seen[e.Query] > p.KeepPerQuery
		if !expired && !surplus {
			continue
		}
		if err := s.remove(e.Key); err != nil {
			errs = append(errs, err)
			continue
		}
		purged = append(purged, e)
	}
	return purged, errors.Join(errs...)
}

func (s *Store) remove(key string) error {
	var errs []error
	for _, p := range []string{s.metaPath(key), s.bodyPath(key)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
