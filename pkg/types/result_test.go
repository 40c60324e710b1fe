package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkMatch_Validate(t *testing.T) {
	valid := ChunkMatch{Rank: 1, FilePath: "a.md", Content: "x", StartLine: 1, EndLine: 1}

	tests := []struct {
		name   string
		mutate func(m *ChunkMatch)
		want   error
	}{
		{"valid", func(m *ChunkMatch) {}, nil},
		{"zero rank", func(m *ChunkMatch) { m.Rank = 0 }, ErrInvalidRank},
		{"no path", func(m *ChunkMatch) { m.FilePath = "" }, ErrInvalidPath},
		{"no content", func(m *ChunkMatch) { m.Content = "" }, ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
