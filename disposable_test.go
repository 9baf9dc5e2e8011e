package svcreg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispose(t *testing.T) {
	t.Run("plain Close", func(t *testing.T) {
		d := NewTDisposable("plain", nil)
		require.NoError(t, dispose(context.Background(), d))
		assert.True(t, d.IsClosed())
	})

	t.Run("context variant receives the caller's context", func(t *testing.T) {
		type ctxKey struct{}
		ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

		d := &TCtxDisposable{Name: "ctx"}
		require.NoError(t, dispose(ctx, d))
		assert.True(t, d.IsClosed())
		require.NotNil(t, d.ctx)
		assert.Equal(t, "marker", d.ctx.Value(ctxKey{}))
	})

	t.Run("disposal errors propagate", func(t *testing.T) {
		d := NewTDisposable("bad", nil)
		d.CloseErr = errors.New("close failed")
		require.ErrorContains(t, dispose(context.Background(), d), "close failed")
	})

	t.Run("values without a disposal hook are a no-op", func(t *testing.T) {
		require.NoError(t, dispose(context.Background(), 42))
		require.NoError(t, dispose(context.Background(), nil))
	})
}
