package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeByBestScoreKeepsMostNegative(t *testing.T) {
	merged := MergeByBestScore([][]*Result{
		{
			{ID: "shared", Score: -1.0},
			{ID: "only-a", Score: -2.5},
		},
		{
			{ID: "shared", Score: -3.0},
			{ID: "only-b", Score: -0.5},
		},
	})

	require.Len(t, merged, 3)
	assert.Equal(t, "shared", merged[0].ID)
	assert.Equal(t, -3.0, merged[0].Score, "the more negative score wins")
	assert.Equal(t, "only-a", merged[1].ID)
	assert.Equal(t, "only-b", merged[2].ID)
}

func TestMergeByBestScoreSortedAscending(t *testing.T) {
	merged := MergeByBestScore([][]*Result{
		{
			{ID: "c", Score: -0.1},
			{ID: "a", Score: -9.0},
			{ID: "b", Score: -4.0},
		},
	})

	require.Len(t, merged, 3)
	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].Score, merged[i].Score)
	}
}

func TestMergeByBestScoreTieBrokenByID(t *testing.T) {
	merged := MergeByBestScore([][]*Result{
		{{ID: "zz", Score: -1.0}},
		{{ID: "aa", Score: -1.0}},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "aa", merged[0].ID)
	assert.Equal(t, "zz", merged[1].ID)
}

func TestMergeByBestScoreDropsInvalid(t *testing.T) {
	merged := MergeByBestScore([][]*Result{
		{nil, {ID: "", Score: -5.0}, {ID: "ok", Score: -1.0}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "ok", merged[0].ID)
}

func TestMergeByBestScoreEmptyInput(t *testing.T) {
	assert.Empty(t, MergeByBestScore(nil))
	assert.Empty(t, MergeByBestScore([][]*Result{{}, {}}))
}
