package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestInvalidArgumentCarriesParam(t *testing.T) {
	err := InvalidArgument("take", "The take value must be 1 or higher.")

	assert.True(t, IsInvalidArgument(err))
	assert.False(t, IsNullArgument(err))
	assert.Equal(t, "take", ArgumentName(err))
	assert.Equal(t, "The take value must be 1 or higher.", err.Error())

	wrapped := fmt.Errorf("get calls: %w", err)
	assert.True(t, IsInvalidArgument(wrapped))
	assert.Equal(t, "take", ArgumentName(wrapped))
}

func TestNullArgument(t *testing.T) {
	err := NullArgument("request")

	assert.True(t, IsNullArgument(err))
	assert.False(t, IsInvalidArgument(err))
	assert.Equal(t, "request", ArgumentName(err))
}

func TestErrorIsMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("find one: %w", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrDuplicate)
}

func TestConvertStoreError(t *testing.T) {
	assert.Nil(t, ConvertStoreError(nil))

	custom := InvalidArgument("x", "bad")
	assert.Same(t, custom, ConvertStoreError(custom))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, ConvertStoreError(dup), ErrDuplicate)

	pqDup := &pq.Error{Code: "23505", Message: "duplicate key value"}
	assert.ErrorIs(t, ConvertStoreError(fmt.Errorf("insert: %w", pqDup)), ErrDuplicate)

	pqConn := &pq.Error{Code: "08006", Message: "connection failure"}
	assert.ErrorIs(t, ConvertStoreError(pqConn), ErrConnection)

	var e *Error
	other := ConvertStoreError(errors.New("boom"))
	assert.True(t, errors.As(other, &e))
	assert.Equal(t, ErrCodeDatabase.Code, e.Code.Code)
	assert.Equal(t, StatusInternalServerError, e.StatusCode)
}
