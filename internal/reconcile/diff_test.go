package reconcile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeDiff(t *testing.T) {
	d := computeDiff([]string{"A", "B", "D"}, []string{"A", "B", "C"})
	require.Equal(t, []string{"D"}, d.ToInsert)
	require.Equal(t, []string{"C"}, d.ToDelete)
	require.Equal(t, []string{"A", "B"}, d.ToCheck)
}

func TestComputeDiff_EmptySides(t *testing.T) {
	d := computeDiff(nil, []string{"A", "B"})
	require.Empty(t, d.ToInsert)
	require.Empty(t, d.ToCheck)
	require.Equal(t, []string{"A", "B"}, d.ToDelete)

	d = computeDiff([]string{"A", "A", "B"}, nil)
	require.Equal(t, []string{"A", "B"}, d.ToInsert)
	require.Empty(t, d.ToDelete)
}

func TestChunks(t *testing.T) {
	ids := make([]string, 2500)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}

	parts := chunks(ids, MaxChunk)
	require.Len(t, parts, 3)
	require.Len(t, parts[0], 1000)
	require.Len(t, parts[1], 1000)
	require.Len(t, parts[2], 500)
	require.Equal(t, "id-2499", parts[2][499])

	require.Empty(t, chunks([]string{}, MaxChunk))
	require.Len(t, chunks(ids[:1000], MaxChunk), 1)
}
