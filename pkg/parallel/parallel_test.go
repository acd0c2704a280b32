package parallel

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapCollectsResultsInInputOrder(t *testing.T) {
	in := []int{1, 2, 3, 4, 5}

	results := Map(context.Background(), 2, in, func(ctx context.Context, n int) (string, error) {
		return strconv.Itoa(n * 10), nil
	})

	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.NoError(t, res.Err)
		assert.Equal(t, strconv.Itoa(in[i]*10), res.Value)
	}
}

func TestMapFailuresDoNotAbortSiblings(t *testing.T) {
	in := []string{"ok1", "fail", "ok2"}

	results := Map(context.Background(), 3, in, func(ctx context.Context, s string) (string, error) {
		if s == "fail" {
			return "", errors.New("unit failed")
		}
		return s + "-done", nil
	})

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "ok1-done", results[0].Value)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "ok2-done", results[2].Value)
}

func TestMapRespectsBound(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	in := make([]int, 20)
	results := Map(context.Background(), 3, in, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return struct{}{}, nil
	})

	require.Len(t, results, 20)
	assert.LessOrEqual(t, peak, int64(3))
}

func TestMapWaitsForAllUnits(t *testing.T) {
	var completed int64

	Map(context.Background(), 2, []int{1, 2, 3, 4}, func(ctx context.Context, _ int) (struct{}, error) {
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&completed, 1)
		return struct{}{}, nil
	})

	assert.Equal(t, int64(4), atomic.LoadInt64(&completed))
}

func TestMapCancelledContextMarksUnstartedUnits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Map(ctx, 1, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	assert.Greater(t, failed, 0)
}
