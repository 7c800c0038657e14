package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

const (
	// DefaultExpirationDays is the cache age ceiling when the
	// configuration does not set one.
	DefaultExpirationDays = 8

	hashLen = 16
)

// Key identifies one cache entry. Account and region sets are sorted
// before hashing so any permutation of the same sets hits the same
// entry.
type Key struct {
	Identifier string
	Accounts   []string
	Regions    []string
	Customer   string
	Extra      map[string]string
}

// Hash returns the first 16 hex characters of the SHA-256 digest over
// the canonical key string.
func (k Key) Hash() string {
	accounts := append([]string(nil), k.Accounts...)
	regions := append([]string(nil), k.Regions...)
	sort.Strings(accounts)
	sort.Strings(regions)

	extra, _ := json.Marshal(canonicalExtra(k.Extra))
	material := strings.Join([]string{
		k.Customer,
		k.Identifier,
		strings.Join(regions, ","),
		strings.Join(accounts, ","),
		string(extra),
	}, ".")

	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// Hit is a successful cache lookup.
type Hit struct {
	Data     *domain.Table
	StoredAt time.Time
	Path     string
}

// Store is the content-addressed, expiring on-disk cache of raw check
// outputs. It is the sole writer of its directory.
type Store struct {
	dir            string
	expirationDays int
	now            func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithExpirationDays overrides the default entry lifetime.
func WithExpirationDays(days int) Option {
	return func(s *Store) {
		if days > 0 {
			s.expirationDays = days
		}
	}
}

// NewStore creates the cache directory if needed.
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	s := &Store{
		dir:            dir,
		expirationDays: DefaultExpirationDays,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lookup returns the freshest valid entry for the key, or nil on miss.
// Entries past expiration are deleted in place. Unreadable entries
// degrade to a miss.
func (s *Store) Lookup(logger zerolog.Logger, key Key) (*Hit, error) {
	pattern := filepath.Join(s.dir, fmt.Sprintf("%s_output_%s_time_*.json", key.Identifier, key.Hash()))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, domain.CacheError{Path: pattern, Err: err}
	}

	type candidate struct {
		path  string
		epoch int64
	}
	var fresh []candidate
	cutoff := s.now().Unix() - int64(s.expirationDays)*86400

	for _, path := range matches {
		epoch, ok := epochFromFilename(path)
		if !ok {
			// Not one of ours; leave alone.
			continue
		}
		// Expired when age >= the configured window.
		if epoch <= cutoff {
			if err := os.Remove(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to remove expired cache entry")
			}
			continue
		}
		fresh = append(fresh, candidate{path: path, epoch: epoch})
	}

	if len(fresh) == 0 {
		return nil, nil
	}

	// Latest write wins; lexical tie-break on identical epochs.
	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].epoch != fresh[j].epoch {
			return fresh[i].epoch < fresh[j].epoch
		}
		return fresh[i].path < fresh[j].path
	})
	best := fresh[len(fresh)-1]

	raw, err := os.ReadFile(best.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", best.path).Msg("unreadable cache entry, treating as miss")
		return nil, nil
	}
	var table domain.Table
	if err := json.Unmarshal(raw, &table); err != nil {
		logger.Warn().Err(err).Str("path", best.path).Msg("corrupt cache entry, treating as miss")
		return nil, nil
	}

	return &Hit{
		Data:     &table,
		StoredAt: time.Unix(best.epoch, 0),
		Path:     best.path,
	}, nil
}

// Put writes a new entry stamped with the current time. Older entries
// for the same key are left in place; Lookup picks the freshest.
func (s *Store) Put(key Key, table *domain.Table) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return domain.CacheError{Path: s.dir, Err: err}
	}
	name := fmt.Sprintf("%s_output_%s_time_%d.json", key.Identifier, key.Hash(), s.now().Unix())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return domain.CacheError{Path: path, Err: err}
	}
	return nil
}

// Invalidate unconditionally deletes every entry for the key.
func (s *Store) Invalidate(key Key) error {
	pattern := filepath.Join(s.dir, fmt.Sprintf("%s_output_%s_time_*.json", key.Identifier, key.Hash()))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return domain.CacheError{Path: pattern, Err: err}
	}
	for _, path := range matches {
		if _, ok := epochFromFilename(path); !ok {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return domain.CacheError{Path: path, Err: err}
		}
	}
	return nil
}

// epochFromFilename extracts the trailing epoch stamp. A filename whose
// stamp does not parse is not a cache file.
func epochFromFilename(path string) (int64, bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	idx := strings.LastIndex(base, "_time_")
	if idx < 0 {
		return 0, false
	}
	epoch, err := strconv.ParseInt(base[idx+len("_time_"):], 10, 64)
	if err != nil {
		return 0, false
	}
	return epoch, true
}

func canonicalExtra(extra map[string]string) [][2]string {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, extra[k]})
	}
	return out
}
