package lifetime_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/ioc/internal/lifetime"
)

type bean struct {
	Name string
	Peer *bean
}

func TestCache_CreatesOnce(t *testing.T) {
	cache := lifetime.NewCache()
	owner := lifetime.NewOwner()

	var calls int
	create := func() (any, error) {
		calls++
		return &bean{Name: "a"}, nil
	}

	first, err := cache.Get(owner, "a", true, create)
	require.NoError(t, err)

	second, err := cache.Get(lifetime.NewOwner(), "a", true, create)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"a"}, cache.Names())

	v, ok := cache.Lookup("a")
	require.True(t, ok)
	assert.Same(t, first, v)
}

func TestCache_SameOwnerGetsEarlyReference(t *testing.T) {
	cache := lifetime.NewCache()
	owner := lifetime.NewOwner()

	raw := &bean{Name: "a"}
	var factoryCalls int

	got, err := cache.Get(owner, "a", true, func() (any, error) {
		cache.AddFactory("a", func() (any, error) {
			factoryCalls++
			return raw, nil
		})

		early, err := cache.Get(owner, "a", true, func() (any, error) {
			t.Fatal("nested request must not create a second instance")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Same(t, raw, early)

		again, err := cache.Get(owner, "a", true, nil)
		require.NoError(t, err)
		assert.Same(t, raw, again)

		v, ok := cache.EarlyReference("a")
		assert.True(t, ok)
		assert.Same(t, raw, v)

		return raw, nil
	})

	require.NoError(t, err)
	assert.Same(t, raw, got)
	assert.Equal(t, 1, factoryCalls, "tier 3 factory is consumed once and promoted to tier 2")

	_, ok := cache.EarlyReference("a")
	assert.False(t, ok, "early tiers are cleared on commit")
	assert.False(t, cache.InCreation("a"))
}

func TestCache_ReentryWithoutEarlyReference(t *testing.T) {
	tests := []struct {
		name        string
		withFactory bool
		allowEarly  bool
	}{
		{name: "no factory registered yet", withFactory: false, allowEarly: true},
		{name: "early references not allowed", withFactory: true, allowEarly: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := lifetime.NewCache()
			owner := lifetime.NewOwner()

			_, err := cache.Get(owner, "a", true, func() (any, error) {
				if tt.withFactory {
					cache.AddFactory("a", func() (any, error) { return &bean{}, nil })
				}
				_, err := cache.Get(owner, "a", tt.allowEarly, nil)
				return nil, err
			})

			assert.ErrorIs(t, err, lifetime.ErrCurrentlyInCreation)
			assert.False(t, cache.InCreation("a"))
			assert.Equal(t, 0, cache.Len())
		})
	}
}

func TestCache_FailureIsNotCached(t *testing.T) {
	cache := lifetime.NewCache()
	owner := lifetime.NewOwner()
	boom := errors.New("boom")

	_, err := cache.Get(owner, "a", true, func() (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.False(t, cache.InCreation("a"))

	v, err := cache.Get(owner, "a", true, func() (any, error) { return &bean{Name: "retry"}, nil })
	require.NoError(t, err)
	assert.Equal(t, "retry", v.(*bean).Name)
}

func TestCache_PanicClearsCreationMark(t *testing.T) {
	cache := lifetime.NewCache()
	owner := lifetime.NewOwner()

	assert.Panics(t, func() {
		_, _ = cache.Get(owner, "a", true, func() (any, error) { panic("constructor exploded") })
	})

	assert.False(t, cache.InCreation("a"))
	_, ok := cache.Lookup("a")
	assert.False(t, ok)
}

func TestCache_ConcurrentFirstAccess(t *testing.T) {
	cache := lifetime.NewCache()

	var calls atomic.Int32
	create := func() (any, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return &bean{Name: "shared"}, nil
	}

	const workers = 32
	results := make([]any, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := cache.Get(lifetime.NewOwner(), "shared", true, create)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

func TestCache_CrossOwnerCycleDoesNotDeadlock(t *testing.T) {
	cache := lifetime.NewCache()

	aReady := make(chan struct{})
	bReady := make(chan struct{})

	a := &bean{Name: "a"}
	b := &bean{Name: "b"}

	run := func(owner *lifetime.Owner, self *bean, ready, peerReady chan struct{}, peer string) func() (any, error) {
		return func() (any, error) {
			cache.AddFactory(self.Name, func() (any, error) { return self, nil })
			close(ready)
			<-peerReady

			v, err := cache.Get(owner, peer, true, func() (any, error) {
				return nil, errors.New("peer must not be created twice")
			})
			if err != nil {
				return nil, err
			}
			self.Peer = v.(*bean)
			return self, nil
		}
	}

	done := make(chan struct{})
	var errA, errB error

	go func() {
		defer func() { done <- struct{}{} }()
		owner := lifetime.NewOwner()
		_, errA = cache.Get(owner, "a", true, run(owner, a, aReady, bReady, "b"))
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		owner := lifetime.NewOwner()
		_, errB = cache.Get(owner, "b", true, run(owner, b, bReady, aReady, "a"))
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("cross-goroutine cycle deadlocked")
		}
	}

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Same(t, b, a.Peer)
	assert.Same(t, a, b.Peer)
	assert.Equal(t, 2, cache.Len())
}

func TestCache_Clear(t *testing.T) {
	cache := lifetime.NewCache()
	owner := lifetime.NewOwner()

	_, err := cache.Get(owner, "a", true, func() (any, error) { return &bean{}, nil })
	require.NoError(t, err)

	cache.Clear()

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Lookup("a")
	assert.False(t, ok)
}

func TestCache_AddFactoryOutsideCreationIsIgnored(t *testing.T) {
	cache := lifetime.NewCache()
	cache.AddFactory("ghost", func() (any, error) { return &bean{}, nil })

	_, ok := cache.EarlyReference("ghost")
	assert.False(t, ok)
	assert.False(t, cache.InCreation("ghost"))
}

func TestCache_Remove(t *testing.T) {
	cache := lifetime.NewCache()
	owner := lifetime.NewOwner()

	for _, name := range []string{"a", "b", "c"} {
		_, err := cache.Get(owner, name, true, func() (any, error) { return &bean{Name: name}, nil })
		require.NoError(t, err)
	}

	assert.True(t, cache.Remove("b"))
	assert.False(t, cache.Remove("b"))
	assert.False(t, cache.Remove("ghost"))

	assert.Equal(t, []string{"a", "c"}, cache.Names())
	_, ok := cache.Lookup("b")
	assert.False(t, ok)

	var created int
	v, err := cache.Get(owner, "b", true, func() (any, error) {
		created++
		return &bean{Name: "b2"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, "b2", v.(*bean).Name)
	assert.Equal(t, []string{"a", "c", "b"}, cache.Names())
}
