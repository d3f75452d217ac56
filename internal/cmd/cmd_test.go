package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/orders/memstore"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand() (*cobra.Command, *bytes.Buffer) {
	out := &bytes.Buffer{}
	c := &cobra.Command{}
	c.SetOut(out)
	c.SetContext(context.Background())
	return c, out
}

func TestSeedCatalogCoversEveryAvailability(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	n, err := seedCatalog(ctx, store, false)
	require.NoError(t, err)
	assert.Equal(t, len(sampleCatalog()), n)

	seen := map[orders.Availability]bool{}
	ps, _ := store.ListProducts(ctx)
	for _, p := range ps {
		seen[p.Availability()] = true
	}
	assert.True(t, seen[orders.AvailabilityInStock])
	assert.True(t, seen[orders.AvailabilityOutOfStock])
	assert.True(t, seen[orders.AvailabilityUntracked])

	n, err = seedCatalog(ctx, store, false)
	require.NoError(t, err)
	assert.Zero(t, n, "existing catalog is left alone")
}

func TestGrantAndRevokeStaff(t *testing.T) {
	store := memstore.New()
	c, out := testCommand()

	require.NoError(t, grantStaff(c, store, []string{"S1", "S2"}))
	ok, _ := store.IsStaff(context.Background(), "S2")
	assert.True(t, ok)

	require.NoError(t, revokeStaff(c, store, []string{"S2", "nobody"}))
	ok, _ = store.IsStaff(context.Background(), "S2")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "nobody was not staff")
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"migrate"}, {"staff", "grant"}, {"staff", "revoke"}, {"session", "issue"}, {"seed"}} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}
