package registry

import (
	"errors"
	"sync"
	"testing"

	"cdr_api/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry[int]()

	isNew, err := r.Register("mongo", 1)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = r.Register("mongo", 2)
	require.NoError(t, err)
	assert.False(t, isNew)

	v, ok := r.Get("mongo")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = r.Get("postgres")
	assert.False(t, ok)
}

func TestRegisterEmptyName(t *testing.T) {
	r := NewRegistry[string]()
	_, err := r.Register("", "x")
	assert.ErrorIs(t, err, common.ErrRequiredField)
}

func TestMustGetAndNames(t *testing.T) {
	r := NewRegistry[string]()
	_, _ = r.Register("sqlite", "s")
	_, _ = r.Register("postgres", "p")

	assert.Equal(t, []string{"postgres", "sqlite"}, r.Names())

	v, err := r.MustGet("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "s", v)

	_, err = r.MustGet("mongo")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClear(t *testing.T) {
	r := NewRegistry[string]()
	_, _ = r.Register("a", "x")

	var cleaned string
	deleted, err := r.Clear("a", func(s string) error { cleaned = s; return nil })
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, "x", cleaned)

	deleted, err = r.Clear("a", nil)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, _ = r.Register("b", "y")
	_, err = r.Clear("b", func(string) error { return errors.New("close failed") })
	assert.Error(t, err)
	_, ok := r.Get("b")
	assert.True(t, ok)
}

func TestConcurrentRegister(t *testing.T) {
	r := NewRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = r.Register("k", i)
			_, _ = r.Get("k")
		}(i)
	}
	wg.Wait()
	_, ok := r.Get("k")
	assert.True(t, ok)
}
