package items

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.json")
	list := []string{"cam01/a.jpg", "cam01/b.jpg", "cam02/c.jpg"}

	require.NoError(t, WriteListFile(path, list))

	got, err := ReadListFile(path)
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestReadListFileMissing(t *testing.T) {
	_, err := ReadListFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestDecodeListRejectsNonArray(t *testing.T) {
	_, err := DecodeList([]byte(`{"images": []}`))
	assert.Error(t, err)
}

func TestDifference(t *testing.T) {
	testCases := []struct {
		name string
		a    []string
		b    []string
		want []string
	}{
		{
			name: "basic difference",
			a:    []string{"a", "b", "c", "d"},
			b:    []string{"a", "c"},
			want: []string{"b", "d"},
		},
		{
			name: "disjoint",
			a:    []string{"x", "y"},
			b:    []string{"a"},
			want: []string{"x", "y"},
		},
		{
			name: "identical",
			a:    []string{"a", "b"},
			b:    []string{"b", "a"},
			want: nil,
		},
		{
			name: "result is sorted",
			a:    []string{"z", "m", "a"},
			b:    nil,
			want: []string{"a", "m", "z"},
		},
		{
			name: "duplicates in a count once",
			a:    []string{"b", "b", "a"},
			b:    nil,
			want: []string{"a", "b"},
		},
		{
			name: "empty a",
			a:    nil,
			b:    []string{"a"},
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Difference(tc.a, tc.b))
		})
	}
}

func TestSubset(t *testing.T) {
	assert.True(t, Subset([]string{"d"}, []string{"b", "d"}))
	assert.True(t, Subset(nil, []string{"a"}))
	assert.True(t, Subset(nil, nil))
	assert.False(t, Subset([]string{"e"}, []string{"b", "d"}))
}
