package codes

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code := Generate()
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "code %q not numeric", code)
		}
		assert.GreaterOrEqual(t, code, "100000")
		seen[code] = struct{}{}
	}
	// 200 draws from 900k values colliding down to a handful would mean
	// a broken generator.
	assert.Greater(t, len(seen), 150)
}

func newTestVault(t *testing.T) (*Vault, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVault(client, DefaultTTL), mr
}

func TestVaultSaveAndLive(t *testing.T) {
	vault, _ := newTestVault(t)
	ctx := context.Background()
	id := uuid.New()

	live, err := vault.Live(ctx, id)
	require.NoError(t, err)
	assert.False(t, live, "no code saved yet")

	require.NoError(t, vault.Save(ctx, id, "123456"))

	live, err = vault.Live(ctx, id)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestVaultExpiry(t *testing.T) {
	vault, mr := newTestVault(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, vault.Save(ctx, id, "123456"))
	mr.FastForward(DefaultTTL + time.Second)

	live, err := vault.Live(ctx, id)
	require.NoError(t, err)
	assert.False(t, live, "code should expire after the TTL")
}

func TestNilVaultIsPermissive(t *testing.T) {
	var vault *Vault
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, vault.Save(ctx, id, "123456"))
	live, err := vault.Live(ctx, id)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestNewVaultNilClient(t *testing.T) {
	assert.Nil(t, NewVault(nil, DefaultTTL))
}
