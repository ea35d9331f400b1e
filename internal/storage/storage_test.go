package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/aleksaelezovic/tristore/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]store.Storage {
	t.Helper()

	mem, err := NewInMemoryBadgerStorage()
	require.NoError(t, err)

	disk, err := NewBadgerStorage(t.TempDir())
	require.NoError(t, err)

	lite, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)

	all := map[string]store.Storage{"badger-memory": mem, "badger": disk, "sqlite": lite}
	t.Cleanup(func() {
		for _, s := range all {
			_ = s.Close()
		}
	})
	return all
}

func collect(t *testing.T, txn store.Transaction, table store.Table, prefix []byte) []string {
	t.Helper()
	it, err := txn.Scan(table, prefix)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	return keys
}

func TestStorage_SetGetDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			txn, err := s.Begin(true)
			require.NoError(t, err)
			require.NoError(t, txn.Set(store.TableTerms, []byte("k1"), []byte("v1")))
			require.NoError(t, txn.Set(store.TableContexts, []byte("k1"), []byte("other table")))
			require.NoError(t, txn.Commit())

			txn, err = s.Begin(false)
			require.NoError(t, err)
			v, err := txn.Get(store.TableTerms, []byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, "v1", string(v))

			_, err = txn.Get(store.TableTerms, []byte("missing"))
			assert.True(t, errors.Is(err, store.ErrNotFound))

			assert.True(t, errors.Is(txn.Set(store.TableTerms, []byte("k2"), nil), store.ErrTransactionRO))
			require.NoError(t, txn.Rollback())

			txn, err = s.Begin(true)
			require.NoError(t, err)
			require.NoError(t, txn.Delete(store.TableTerms, []byte("k1")))
			require.NoError(t, txn.Commit())

			txn, err = s.Begin(false)
			require.NoError(t, err)
			defer txn.Rollback()
			_, err = txn.Get(store.TableTerms, []byte("k1"))
			assert.True(t, errors.Is(err, store.ErrNotFound))

			v, err = txn.Get(store.TableContexts, []byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, "other table", string(v))
		})
	}
}

func TestStorage_ScanPrefix(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			txn, err := s.Begin(true)
			require.NoError(t, err)
			for _, k := range []string{"ab", "aa", "b", "a\xff", "abc"} {
				require.NoError(t, txn.Set(store.TableURISPO, []byte(k), []byte{}))
			}
			require.NoError(t, txn.Set(store.TableURIPOS, []byte("aa"), []byte{}))
			require.NoError(t, txn.Commit())

			txn, err = s.Begin(false)
			require.NoError(t, err)
			defer txn.Rollback()

			assert.Equal(t, []string{"aa", "ab", "abc", "a\xff", "b"}, collect(t, txn, store.TableURISPO, nil))
			assert.Equal(t, []string{"aa", "ab", "abc", "a\xff"}, collect(t, txn, store.TableURISPO, []byte("a")))
			assert.Equal(t, []string{"ab", "abc"}, collect(t, txn, store.TableURISPO, []byte("ab")))
			assert.Empty(t, collect(t, txn, store.TableURISPO, []byte("c")))
			assert.Equal(t, []string{"aa"}, collect(t, txn, store.TableURIPOS, nil))
		})
	}
}

func TestStorage_Rollback(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			txn, err := s.Begin(true)
			require.NoError(t, err)
			require.NoError(t, txn.Set(store.TableTerms, []byte("gone"), []byte("x")))
			require.NoError(t, txn.Rollback())

			txn, err = s.Begin(false)
			require.NoError(t, err)
			defer txn.Rollback()
			_, err = txn.Get(store.TableTerms, []byte("gone"))
			assert.True(t, errors.Is(err, store.ErrNotFound))
		})
	}
}

func TestSQLiteStorage_ReadDuringWrite(t *testing.T) {
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer s.Close()

	writer, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, writer.Set(store.TableTerms, []byte("k"), []byte("v")))

	// readers get their own connection and see only committed rows
	reader, err := s.Begin(false)
	require.NoError(t, err)
	_, err = reader.Get(store.TableTerms, []byte("k"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, reader.Rollback())

	require.NoError(t, writer.Commit())

	reader, err = s.Begin(false)
	require.NoError(t, err)
	defer reader.Rollback()
	v, err := reader.Get(store.TableTerms, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("b"), prefixEnd([]byte("a")))
	assert.Equal(t, []byte("b"), prefixEnd([]byte("a\xff")))
	assert.Nil(t, prefixEnd([]byte("\xff\xff")))
	assert.Nil(t, prefixEnd(nil))
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendMemory, "")
	require.NoError(t, err)
	require.NoError(t, s.Sync())
	require.NoError(t, s.Close())

	_, err = Open("postgres", "")
	assert.Error(t, err)
}
