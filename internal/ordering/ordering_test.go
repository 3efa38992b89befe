package ordering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
)

func entries(keys ...string) []Entry[string] {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Entry[string], 0, len(keys))
	for i, k := range keys {
		out = append(out, Entry[string]{Key: k, Position: i, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	return out
}

func TestAppend(t *testing.T) {
	assert.Equal(t, 0, Append[string](nil))
	assert.Equal(t, 3, Append(entries("a", "b", "c")))

	gappy := []Entry[string]{{Key: "a", Position: 0}, {Key: "b", Position: 7}}
	assert.Equal(t, 8, Append(gappy))
}

func TestReorder(t *testing.T) {
	current := []string{"10026-1", "30706-1", "21318-1"}

	t.Run("exact permutation", func(t *testing.T) {
		got, err := Reorder(current, []string{"21318-1", "10026-1", "30706-1"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"21318-1": 0, "10026-1": 1, "30706-1": 2}, got)
	})

	tests := []struct {
		name    string
		desired []string
		want    Mismatch[string]
	}{
		{
			name:    "missing entry",
			desired: []string{"10026-1", "30706-1"},
			want:    Mismatch[string]{Missing: []string{"21318-1"}},
		},
		{
			name:    "unknown entry",
			desired: []string{"10026-1", "30706-1", "21318-1", "10305-1"},
			want:    Mismatch[string]{Unknown: []string{"10305-1"}},
		},
		{
			name:    "duplicate entry",
			desired: []string{"10026-1", "10026-1", "21318-1"},
			want:    Mismatch[string]{Missing: []string{"30706-1"}, Duplicates: []string{"10026-1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(current, tt.desired)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			var domainErr *apperrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.want, domainErr.Details)
		})
	}
}

func TestReorderEmpty(t *testing.T) {
	got, err := Reorder[string](nil, []string{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompact(t *testing.T) {
	got := Compact(entries("10026-1", "30706-1", "21318-1"), "30706-1")
	require.Len(t, got, 2)
	assert.Equal(t, "10026-1", got[0].Key)
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, "21318-1", got[1].Key)
	assert.Equal(t, 1, got[1].Position)
}

func TestCompactBreaksTies(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	in := []Entry[string]{
		{Key: "b", Position: 4, CreatedAt: late},
		{Key: "c", Position: 4, CreatedAt: early},
		{Key: "a", Position: 4, CreatedAt: early},
		{Key: "z", Position: 1, CreatedAt: late},
	}

	got := Compact(in)
	keys := make([]string, 0, len(got))
	for i, e := range got {
		keys = append(keys, e.Key)
		assert.Equal(t, i, e.Position)
	}
	assert.Equal(t, []string{"z", "a", "c", "b"}, keys)
}

func TestChanged(t *testing.T) {
	current := entries("a", "b", "c")
	got := Changed(current, map[string]int{"a": 0, "b": 2, "c": 1})
	assert.Equal(t, map[string]int{"b": 2, "c": 1}, got)
}
