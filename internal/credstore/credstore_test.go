package credstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_SetGetClear(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "sess-1", KindIDToken)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "sess-1", KindIDToken, "token-a"))
			value, err := store.Get(ctx, "sess-1", KindIDToken)
			require.NoError(t, err)
			assert.Equal(t, "token-a", value)

			// Overwrite
			require.NoError(t, store.Set(ctx, "sess-1", KindIDToken, "token-b"))
			value, err = store.Get(ctx, "sess-1", KindIDToken)
			require.NoError(t, err)
			assert.Equal(t, "token-b", value)

			// Other sessions are independent
			_, err = store.Get(ctx, "sess-2", KindIDToken)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Clear(ctx, "sess-1", KindIDToken))
			_, err = store.Get(ctx, "sess-1", KindIDToken)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_ClearAll(t *testing.T) {
	ctx := context.Background()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, kind := range Kinds {
				require.NoError(t, store.Set(ctx, "sess-1", kind, "value-"+string(kind)))
			}
			require.NoError(t, store.Set(ctx, "sess-2", KindAccessToken, "other"))

			require.NoError(t, store.ClearAll(ctx, "sess-1"))

			for _, kind := range Kinds {
				_, err := store.Get(ctx, "sess-1", kind)
				assert.ErrorIs(t, err, ErrNotFound)
			}

			// Unrelated session untouched
			value, err := store.Get(ctx, "sess-2", KindAccessToken)
			require.NoError(t, err)
			assert.Equal(t, "other", value)
		})
	}
}

func TestCredentials_Bearer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	creds := ForSession(store, "sess-1")

	t.Run("neither token", func(t *testing.T) {
		_, err := creds.Bearer(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("access token only", func(t *testing.T) {
		require.NoError(t, creds.Set(ctx, KindAccessToken, "access-1"))
		bearer, err := creds.Bearer(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-1", bearer)
	})

	t.Run("id token takes precedence", func(t *testing.T) {
		require.NoError(t, creds.Set(ctx, KindIDToken, "id-1"))
		bearer, err := creds.Bearer(ctx)
		require.NoError(t, err)
		assert.Equal(t, "id-1", bearer)
	})

	t.Run("back to access after id cleared", func(t *testing.T) {
		require.NoError(t, creds.Clear(ctx, KindIDToken))
		bearer, err := creds.Bearer(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-1", bearer)
	})
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "credentials.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "sess-1", KindRefreshToken, "refresh-1"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "sess-1", KindRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", value)
}
