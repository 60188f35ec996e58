package ioc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		c := newTestContainer(t)
		ctx := WithContainer(context.Background(), c)

		got, err := FromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, c, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := FromContext(context.Background())
		assert.ErrorIs(t, err, ErrContainerNotInContext)

		_, err = FromContext(WithContainer(context.Background(), nil))
		assert.ErrorIs(t, err, ErrContainerNotInContext)
	})

	t.Run("closed", func(t *testing.T) {
		c := New()
		ctx := WithContainer(context.Background(), c)
		require.NoError(t, c.Close())

		_, err := FromContext(ctx)
		assert.ErrorIs(t, err, ErrContainerClosed)
	})
}
