package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndRecoverability(t *testing.T) {
	tests := []struct {
		code        string
		category    Category
		recoverable bool
	}{
		{ErrCodeConfigNotFound, CategoryConfig, false},
		{ErrCodeStoreQuery, CategoryStorage, false},
		{ErrCodeModelTimeout, CategoryModel, true},
		{ErrCodeModelOutput, CategoryModel, true},
		{ErrCodeInvalidInput, CategoryValidation, true},
		{ErrCodeInternal, CategoryInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "message", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.recoverable, err.Recoverable)
		})
	}
}

func TestErrorFormat(t *testing.T) {
	err := New(ErrCodeModelTimeout, "model invocation timed out", nil)
	assert.Equal(t, "[ERR_301_MODEL_TIMEOUT] model invocation timed out", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("underlying failure")
	err := Wrap(ErrCodeStoreQuery, cause)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "underlying failure", err.Message)

	assert.Nil(t, Wrap(ErrCodeStoreQuery, nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(ErrCodeModelTimeout, stderrors.New("slow"))
	assert.ErrorIs(t, err, New(ErrCodeModelTimeout, "", nil))
	assert.NotErrorIs(t, err, New(ErrCodeModelExit, "", nil))
}

func TestRecoverReturnsFallback(t *testing.T) {
	got := Recover("op", stderrors.New("boom"), map[string]int{})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	n := Recover("op", nil, 42)
	assert.Equal(t, 42, n)
}
