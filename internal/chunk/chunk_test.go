package chunk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildobs/batchpilot/internal/items"
)

func makeItems(n int) []string {
	list := make([]string, n)
	for i := range list {
		list[i] = fmt.Sprintf("cam/%05d.jpg", i)
	}
	return list
}

func TestDivideExactPartition(t *testing.T) {
	testCases := []struct {
		name       string
		n          int
		size       int
		wantChunks int
	}{
		{name: "even split", n: 3000, size: 1000, wantChunks: 3},
		{name: "short last chunk", n: 2500, size: 1000, wantChunks: 3},
		{name: "single chunk", n: 10, size: 1000, wantChunks: 1},
		{name: "size one", n: 5, size: 1, wantChunks: 5},
		{name: "size equals length", n: 7, size: 7, wantChunks: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			list := makeItems(tc.n)
			chunks, err := Divide(list, tc.size)
			require.NoError(t, err)
			require.Len(t, chunks, tc.wantChunks)

			// Concatenation in index order must reproduce the input
			// exactly: no loss, no duplication, no reordering.
			var rejoined []string
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.LessOrEqual(t, len(c.Items), tc.size)
				rejoined = append(rejoined, c.Items...)
			}
			assert.Equal(t, list, rejoined)
		})
	}
}

func TestDivideEmptyList(t *testing.T) {
	chunks, err := Divide(nil, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDivideInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Divide(makeItems(3), size)
		assert.ErrorIs(t, err, ErrInvalidChunkSize)
	}
}

func TestDivideDeterministic(t *testing.T) {
	list := makeItems(250)
	a, err := Divide(list, 100)
	require.NoError(t, err)
	b, err := Divide(list, 100)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "survey_all.chunk000.json", FileName("survey_all", 0))
	assert.Equal(t, "survey_all.chunk042.json", FileName("survey_all", 42))
	assert.Equal(t, "survey_all.chunk1000.json", FileName("survey_all", 1000))
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	list := makeItems(25)
	chunks, err := Divide(list, 10)
	require.NoError(t, err)

	paths, err := WriteFiles(dir, "survey", chunks)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	var rejoined []string
	for _, p := range paths {
		content, err := items.ReadListFile(p)
		require.NoError(t, err)
		rejoined = append(rejoined, content...)
	}
	assert.Equal(t, list, rejoined)
}
