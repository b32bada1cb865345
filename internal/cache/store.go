package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no capture matches a key or query name.
var ErrNotFound = errors.New("capture not found")

// Entry describes one captured response. The body lives next to it.
type Entry struct {
	Key         string    `json:"key"`
	Query       string    `json:"query"`
	Method      string    `json:"method"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Status      int       `json:"status"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store persists response bodies on disk as <key>.meta.json and <key>.body so
// a scraped page can be parsed again without a live session. Captured pages
// may carry customer data; StrictPerms restricts them to the current user.
type Store struct {
	Dir string
	// StrictPerms enforces 0700 on the directory and 0600 on files.
	StrictPerms bool
}

// Key derives a stable capture key from the request identity. Form values are
// encoded in sorted order, so map iteration does not change the key.
func Key(method, rawURL string, form url.Values) string {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(method)))
	h.Write([]byte{'\n'})
	h.Write([]byte(rawURL))
	h.Write([]byte{'\n'})
	h.Write([]byte(form.Encode()))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("capture dir not configured")
	}
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(s.Dir, perm); err != nil {
		return err
	}
	if s.StrictPerms {
		if info, err := os.Stat(s.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(s.Dir, 0o700)
		}
	}
	return nil
}

func (s *Store) fileMode() os.FileMode {
	if s.StrictPerms {
		return 0o600
	}
	return 0o644
}

func (s *Store) metaPath(key string) string { return filepath.Join(s.Dir, key+".meta.json") }
func (s *Store) bodyPath(key string) string { return filepath.Join(s.Dir, key+".body") }

// Save writes the body first, then the metadata through a temp file, so a
// meta file never points at a missing body.
func (s *Store) Save(_ context.Context, e Entry, body []byte) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if e.Key == "" {
		return errors.New("capture key is empty")
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	if err := os.WriteFile(s.bodyPath(e.Key), body, s.fileMode()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	data, err := json.MarshalIndent(&e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := s.metaPath(e.Key) + ".tmp"
	if err := os.WriteFile(tmp, data, s.fileMode()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, s.metaPath(e.Key))
}

// LoadMeta returns the metadata stored under key.
func (s *Store) LoadMeta(_ context.Context, key string) (*Entry, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode meta %s: %w", key, err)
	}
	return &e, nil
}

// LoadBody returns the body stored under key.
func (s *Store) LoadBody(_ context.Context, key string) ([]byte, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.bodyPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return b, err
}

// List returns every readable entry, newest first. Malformed metadata is
// skipped.
func (s *Store) List(_ context.Context) ([]Entry, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.meta.json"))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(matches))
	for _, p := range matches {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// Latest returns the newest entry recorded for the named query.
func (s *Store) Latest(ctx context.Context, query string) (*Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Query == query {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no capture for query %q", ErrNotFound, query)
}

// Resolve accepts either a capture key or a query name and returns the entry.
func (s *Store) Resolve(ctx context.Context, ref string) (*Entry, error) {
	if e, err := s.LoadMeta(ctx, ref); err == nil {
		return e, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.Latest(ctx, ref)
}
