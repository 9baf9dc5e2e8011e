package svcreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type keyTestIface interface {
	DoIt()
}

func TestKey(t *testing.T) {
	t.Run("named keys compare by name", func(t *testing.T) {
		assert.Equal(t, NewKey("Logger"), NewKey("Logger"))
		assert.NotEqual(t, NewKey("Logger"), NewKey("logger"))
	})

	t.Run("zero value", func(t *testing.T) {
		var k Key
		assert.True(t, k.IsZero())
		assert.False(t, NewKey("Logger").IsZero())
		assert.Equal(t, "<zero key>", k.String())
	})

	t.Run("usable as map key", func(t *testing.T) {
		m := map[Key]int{NewKey("a"): 1}
		assert.Equal(t, 1, m[NewKey("a")])
	})

	t.Run("derived from interface identity", func(t *testing.T) {
		k := KeyFor[keyTestIface]()
		assert.Equal(t, KeyFor[keyTestIface](), k)
		assert.Contains(t, k.Name(), "keyTestIface")
	})

	t.Run("derived from concrete types", func(t *testing.T) {
		byValue := KeyFor[TLogger]()
		byPointer := KeyFor[*TLogger]()
		assert.NotEqual(t, byValue, byPointer)
		assert.Contains(t, byPointer.Name(), "*")
		assert.Contains(t, byValue.Name(), "TLogger")
	})

	t.Run("string form", func(t *testing.T) {
		assert.Equal(t, "Logger", NewKey("Logger").String())
		assert.Equal(t, "Logger", NewKey("Logger").Name())
	})
}
