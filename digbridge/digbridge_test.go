package digbridge

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"github.com/junioryono/ioc"
)

type repository struct {
	ID int
}

type service struct {
	Repo *repository `inject:""`
}

func newContainer(t *testing.T) *ioc.Container {
	t.Helper()

	c := ioc.New()
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, ioc.RegisterComponent[repository](c))
	require.NoError(t, ioc.RegisterComponent[service](c))
	return c
}

func TestProvide(t *testing.T) {
	c := newContainer(t)
	dc := dig.New()

	require.NoError(t, Provide[*service](dc, c, "service"))

	var got *service
	require.NoError(t, dc.Invoke(func(s *service) { got = s }))

	assert.Same(t, ioc.MustGetBean[*service](c, "service"), got)
	assert.Same(t, ioc.MustGetBean[*repository](c, "repository"), got.Repo)
}

func TestProvideNamed(t *testing.T) {
	c := newContainer(t)
	require.NoError(t, c.Register("backup", reflect.TypeOf(repository{})))

	dc := dig.New()
	require.NoError(t, ProvideNamed[*repository](dc, c, "repository"))
	require.NoError(t, ProvideNamed[*repository](dc, c, "backup"))

	type params struct {
		dig.In

		Primary *repository `name:"repository"`
		Backup  *repository `name:"backup"`
	}

	require.NoError(t, dc.Invoke(func(p params) {
		assert.Same(t, ioc.MustGetBean[*repository](c, "repository"), p.Primary)
		assert.Same(t, ioc.MustGetBean[*repository](c, "backup"), p.Backup)
		assert.NotSame(t, p.Primary, p.Backup)
	}))
}

func TestProvideErrors(t *testing.T) {
	c := newContainer(t)

	t.Run("missing bean", func(t *testing.T) {
		dc := dig.New()
		require.NoError(t, Provide[*service](dc, c, "missing"))

		err := dc.Invoke(func(*service) {})
		require.Error(t, err)
		assert.True(t, ioc.IsNotFound(dig.RootCause(err)))
	})

	t.Run("wrong type", func(t *testing.T) {
		dc := dig.New()
		require.NoError(t, Provide[*service](dc, c, "repository"))

		err := dc.Invoke(func(*service) {})
		assert.ErrorContains(t, err, "type assertion failed")
	})

	t.Run("duplicate type", func(t *testing.T) {
		dc := dig.New()
		require.NoError(t, Provide[*service](dc, c, "service"))
		assert.Error(t, Provide[*service](dc, c, "service"))
	})
}
