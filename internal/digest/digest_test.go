package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	t.Run("KnownContent", func(t *testing.T) {
		// Interop fixture: any conforming store must produce this
		// digest for the bytes "hello".
		assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", Sum([]byte("hello")))
	})

	t.Run("EmptyContent", func(t *testing.T) {
		assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", Sum([]byte{}))
		assert.Equal(t, Sum(nil), Sum([]byte{}))
	})

	t.Run("Deterministic", func(t *testing.T) {
		content := []byte("some file content\nwith multiple lines\n")
		first := Sum(content)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, Sum(content))
		}
	})

	t.Run("Shape", func(t *testing.T) {
		d := Sum([]byte("anything"))
		assert.Len(t, d, Size)
		assert.True(t, Valid(d))
	})
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"))

	assert.False(t, Valid(""))
	assert.False(t, Valid("aaf4c6"))
	assert.False(t, Valid("AAF4C61DDCC5E8A2DABEDE0F3B482CD9AEA9434D")) // digests are lowercase
	assert.False(t, Valid("zzf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"))
	assert.False(t, Valid("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d0")) // 41 chars
}
