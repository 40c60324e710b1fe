package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	t.Run("get returns a copy", func(t *testing.T) {
		c := NewCache(4)
		c.Set("h", &Embedding{Vector: []float32{1, 2}, Dimension: 2, Provider: "local"})

		got, ok := c.Get("h")
		require.True(t, ok)
		got.Vector[0] = 99

		again, ok := c.Get("h")
		require.True(t, ok)
		assert.Equal(t, float32(1), again.Vector[0])
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		c := NewCache(2)
		c.Set("a", &Embedding{})
		c.Set("b", &Embedding{})
		_, _ = c.Get("a")
		c.Set("c", &Embedding{})

		assert.Equal(t, 2, c.Size())
		_, ok := c.Get("b")
		assert.False(t, ok)
		_, ok = c.Get("a")
		assert.True(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		c := NewCache(0)
		c.Set("a", &Embedding{})
		c.Clear()
		assert.Equal(t, 0, c.Size())
	})

	t.Run("nil cache never hits", func(t *testing.T) {
		var c *Cache
		c.Set("a", &Embedding{})
		_, ok := c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Size())
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("m", "abc"), CacheKey("m", "abc"))
	assert.NotEqual(t, CacheKey("m", "abc"), CacheKey("m", "abd"))
	assert.NotEqual(t, CacheKey("m1", "abc"), CacheKey("m2", "abc"))
	assert.Len(t, CacheKey("m", "abc"), 64)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		err   error
	}{
		{"ok", []string{"a", "b"}, nil},
		{"empty batch", nil, ErrInvalidInput},
		{"empty text", []string{"a", ""}, ErrInvalidInput},
		{"too large", make([]string, MaxBatchSize+1), ErrBatchTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
