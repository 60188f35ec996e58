package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc/internal/registry"
)

type definition struct {
	Name string
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := registry.New[*definition]()

	d := &definition{Name: "orderDao"}
	r.Register("orderDao", d)

	got, ok := r.Get("orderDao")
	require.True(t, ok)
	assert.Same(t, d, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.True(t, r.Contains("orderDao"))
	assert.False(t, r.Contains("missing"))
}

func TestRegistry_OverwriteKeepsOrder(t *testing.T) {
	r := registry.New[int]()
	r.Register("a", 1)
	r.Register("b", 2)
	r.Register("a", 3)

	assert.Equal(t, []string{"a", "b"}, r.Names())
	v, _ := r.Get("a")
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Clear(t *testing.T) {
	r := registry.New[int]()
	r.Register("a", 1)
	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Names())
	_, ok := r.Get("a")
	assert.False(t, ok)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := registry.New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("bean%d", i), i)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = r.Get(fmt.Sprintf("bean%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}

func TestList_SnapshotIsolation(t *testing.T) {
	l := registry.NewList[string]()
	l.Add("first")
	l.Add("second")

	snap := l.Snapshot()
	l.Add("third")

	assert.Equal(t, []string{"first", "second"}, snap)
	assert.Equal(t, 3, l.Len())

	l.Clear()
	assert.Equal(t, 0, l.Len())
}
