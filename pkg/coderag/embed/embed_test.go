package embed

import (
	"context"
	"math"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsUnitLength(t *testing.T) {
	svc := New(WithCacheDir(t.TempDir()))
	vec, err := svc.Embed(context.Background(), "tokio::time::timeout example")
	require.NoError(t, err)
	require.Len(t, vec, dimensions)

	var sumSq float64
	for _, x := range vec {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
}

// TestEmbedDeterministicAndOrderPreserving covers P7:
// embed([s])[0] == embed([s, s])[0], order preserved, within 1e-5 per component.
func TestEmbedDeterministicAndOrderPreserving(t *testing.T) {
	svc := New(WithCacheDir(t.TempDir()))
	ctx := context.Background()

	single, err := svc.EmbedBatch(ctx, []string{"hello world"})
	require.NoError(t, err)

	paired, err := svc.EmbedBatch(ctx, []string{"hello world", "hello world"})
	require.NoError(t, err)

	require.Len(t, single[0], dimensions)
	require.Len(t, paired[0], dimensions)
	for i := range single[0] {
		assert.InDelta(t, float64(single[0][i]), float64(paired[0][i]), 1e-5)
		assert.InDelta(t, float64(paired[0][i]), float64(paired[1][i]), 1e-5)
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	svc := New(WithCacheDir(t.TempDir()))
	ctx := context.Background()

	out, err := svc.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	alphaAgain, err := svc.Embed(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, alphaAgain, out[0])
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	svc := New(WithCacheDir(t.TempDir()))
	_, err := svc.EmbedBatch(context.Background(), nil)
	require.Error(t, err)
}

// TestEmbedRetriesAfterFailedInit covers the "no poisoning" rule: a failed
// initialization (unwritable cache dir, no existing asset) must not
// prevent a later call from succeeding once the condition clears.
func TestEmbedRetriesAfterFailedInit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("read-only directory permissions behave differently on windows")
	}

	dir := t.TempDir()
	roDir := dir + "/ro"
	require.NoError(t, os.Mkdir(roDir, 0o500))
	defer os.Chmod(roDir, 0o700) //nolint:errcheck

	svc := New(WithCacheDir(roDir + "/cache"))
	_, err := svc.Embed(context.Background(), "first attempt")
	require.Error(t, err)

	require.NoError(t, os.Chmod(roDir, 0o700))
	_, err = svc.Embed(context.Background(), "second attempt")
	require.NoError(t, err)
}
