package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1}, {2}}, chunk([]int{1, 2}, 0))
	assert.Nil(t, chunk([]int{}, 3))
}

func TestRunBatchesKeepsOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	var calls atomic.Int32

	out, err := runBatches(context.Background(), items, 2, 3, func(_ context.Context, batch []int) ([]string, error) {
		calls.Add(1)
		res := make([]string, len(batch))
		for i, v := range batch {
			res[i] = fmt.Sprint(v * 10)
		}
		return res, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30", "40", "50", "60", "70"}, out)
	assert.EqualValues(t, 4, calls.Load())
}

func TestRunBatchesWrapsFailure(t *testing.T) {
	boom := errors.New("boom")

	_, err := runBatches(context.Background(), []int{1, 2, 3}, 1, 1, func(_ context.Context, batch []int) ([]int, error) {
		if batch[0] == 2 {
			return nil, boom
		}
		return batch, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch 2 of 3")
}

func TestRunBatchesSingleFailureUnwrapped(t *testing.T) {
	boom := errors.New("boom")

	_, err := runBatches(context.Background(), []int{1}, 5, 1, func(context.Context, []int) ([]int, error) {
		return nil, boom
	})
	assert.Equal(t, boom, err)
}

func TestRunBatchesDryRun(t *testing.T) {
	var calls atomic.Int32

	_, err := runBatches(context.Background(), []int{1, 2, 3}, 1, 2, func(context.Context, []int) ([]int, error) {
		calls.Add(1)
		return nil, fmt.Errorf("send: %w", errDryRun)
	})
	assert.ErrorIs(t, err, errDryRun)
	assert.EqualValues(t, 3, calls.Load(), "every batch is previewed")
}

func TestUsersGetBatchesLargeInput(t *testing.T) {
	h := newMethodHandler().On("users.get", vkResponse(`[]`))
	env := setupTestEnv(t, h)

	args := []string{"users", "get"}
	for i := 1; i <= 1001; i++ {
		args = append(args, fmt.Sprint(i))
	}
	_, _, err := env.run(args...)
	require.NoError(t, err)
	assert.Len(t, h.calls("users.get"), 2)
}
