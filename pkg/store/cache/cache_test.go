package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
)

func testTable() *domain.Table {
	t := domain.NewTable("Resource_Id", domain.SavingsColumn)
	t.AddRow("eipalloc-1", "3.60")
	t.AddRow("eipalloc-2", "3.60")
	return t
}

func testKey() Key {
	return Key{
		Identifier: "ta_unassociatedelasticipaddresses",
		Accounts:   []string{"111122223333", "444455556666"},
		Regions:    []string{"us-east-1"},
		Customer:   "acme",
	}
}

func setupStore(t *testing.T, opts ...Option) *Store {
	s, err := NewStore(t.TempDir(), opts...)
	require.NoError(t, err)
	return s
}

func TestKey_Hash(t *testing.T) {
	t.Run("success - deterministic under set permutation", func(t *testing.T) {
		a := Key{
			Identifier: "ce_totalchange",
			Accounts:   []string{"111122223333", "444455556666"},
			Regions:    []string{"us-east-1", "eu-west-1"},
			Customer:   "acme",
			Extra:      map[string]string{"window": "12m", "tag": "team"},
		}
		b := Key{
			Identifier: "ce_totalchange",
			Accounts:   []string{"444455556666", "111122223333"},
			Regions:    []string{"eu-west-1", "us-east-1"},
			Customer:   "acme",
			Extra:      map[string]string{"tag": "team", "window": "12m"},
		}
		assert.Equal(t, a.Hash(), b.Hash())
		assert.Len(t, a.Hash(), 16)
	})

	t.Run("success - any input change yields a distinct hash", func(t *testing.T) {
		base := testKey()
		variants := []Key{
			{Identifier: "other_check", Accounts: base.Accounts, Regions: base.Regions, Customer: base.Customer},
			{Identifier: base.Identifier, Accounts: []string{"999988887777"}, Regions: base.Regions, Customer: base.Customer},
			{Identifier: base.Identifier, Accounts: base.Accounts, Regions: []string{"eu-west-1"}, Customer: base.Customer},
			{Identifier: base.Identifier, Accounts: base.Accounts, Regions: base.Regions, Customer: "globex"},
			{Identifier: base.Identifier, Accounts: base.Accounts, Regions: base.Regions, Customer: base.Customer,
				Extra: map[string]string{"k": "v"}},
		}
		for _, v := range variants {
			assert.NotEqual(t, base.Hash(), v.Hash())
		}
	})
}

func TestStore_RoundTrip(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("success - store then lookup within window", func(t *testing.T) {
		s := setupStore(t)
		key := testKey()

		require.NoError(t, s.Put(key, testTable()))

		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		require.NotNil(t, hit)
		assert.Equal(t, testTable().Columns, hit.Data.Columns)
		assert.Equal(t, 2, hit.Data.Len())
	})

	t.Run("success - expired entry misses and is deleted", func(t *testing.T) {
		now := time.Now()
		clock := now
		s := setupStore(t, WithClock(func() time.Time { return clock }))
		key := testKey()

		require.NoError(t, s.Put(key, testTable()))

		clock = now.Add(time.Duration(DefaultExpirationDays)*24*time.Hour + time.Second)
		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		assert.Nil(t, hit)

		matches, err := filepath.Glob(filepath.Join(s.dir, key.Identifier+"_output_*"))
		require.NoError(t, err)
		assert.Empty(t, matches, "expired file must be removed in place")
	})

	t.Run("success - entry exactly at the expiration age misses", func(t *testing.T) {
		now := time.Now()
		clock := now
		s := setupStore(t, WithClock(func() time.Time { return clock }))
		key := testKey()

		require.NoError(t, s.Put(key, testTable()))

		clock = now.Add(time.Duration(DefaultExpirationDays) * 24 * time.Hour)
		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		assert.Nil(t, hit)
	})

	t.Run("success - entry one second under the expiration age hits", func(t *testing.T) {
		now := time.Now()
		clock := now
		s := setupStore(t, WithClock(func() time.Time { return clock }))
		key := testKey()

		require.NoError(t, s.Put(key, testTable()))

		clock = now.Add(time.Duration(DefaultExpirationDays)*24*time.Hour - time.Second)
		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		assert.NotNil(t, hit)
	})

	t.Run("success - latest write wins", func(t *testing.T) {
		now := time.Now()
		clock := now
		s := setupStore(t, WithClock(func() time.Time { return clock }))
		key := testKey()

		old := domain.NewTable("Resource_Id", domain.SavingsColumn)
		old.AddRow("stale", "1.00")
		require.NoError(t, s.Put(key, old))

		clock = now.Add(time.Minute)
		require.NoError(t, s.Put(key, testTable()))

		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		require.NotNil(t, hit)
		assert.Equal(t, 2, hit.Data.Len())
	})

	t.Run("success - invalidate removes all entries", func(t *testing.T) {
		s := setupStore(t)
		key := testKey()
		require.NoError(t, s.Put(key, testTable()))
		require.NoError(t, s.Invalidate(key))

		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		assert.Nil(t, hit)
	})

	t.Run("failure - corrupt entry degrades to miss", func(t *testing.T) {
		s := setupStore(t)
		key := testKey()
		require.NoError(t, s.Put(key, testTable()))

		matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.NoError(t, os.WriteFile(matches[0], []byte("{not json"), 0o644))

		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		assert.Nil(t, hit)
	})

	t.Run("success - unparseable timestamp left alone", func(t *testing.T) {
		s := setupStore(t)
		key := testKey()
		stray := filepath.Join(s.dir, key.Identifier+"_output_"+key.Hash()+"_time_notanepoch.json")
		require.NoError(t, os.WriteFile(stray, []byte("{}"), 0o644))

		hit, err := s.Lookup(logger, key)
		require.NoError(t, err)
		assert.Nil(t, hit)

		_, statErr := os.Stat(stray)
		assert.NoError(t, statErr, "non-cache file must not be deleted")
	})
}
