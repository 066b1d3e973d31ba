package linediff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	res := Compute("a\nb\nc\nd\n", "a\nB\nd\ne\n")
	rows := Flatten(res)

	require.Equal(t, []InlineLine{
		{Type: Equal, OldLineNumber: 1, NewLineNumber: 1, Content: "a", SourceIndex: 0},
		{Type: Removed, OldLineNumber: 2, Content: "b", SourceIndex: 1},
		{Type: Added, NewLineNumber: 2, Content: "B", SourceIndex: 1},
		{Type: Removed, OldLineNumber: 3, Content: "c", SourceIndex: 2},
		{Type: Equal, OldLineNumber: 4, NewLineNumber: 3, Content: "d", SourceIndex: 3},
		{Type: Added, NewLineNumber: 4, Content: "e", SourceIndex: 4},
	}, rows)
}

func TestFlattenModifiedIsNeverOneRow(t *testing.T) {
	rows := Flatten(Compute("x\n", "y\n"))
	require.Len(t, rows, 2)
	require.Equal(t, Removed, rows[0].Type)
	require.Equal(t, Added, rows[1].Type)
	require.Equal(t, rows[0].SourceIndex, rows[1].SourceIndex)
}

func TestHunkStarts(t *testing.T) {
	res := Compute("a\nb\nc\nd\n", "a\nB\nc\nD\n")
	rows := Flatten(res)
	starts := HunkStarts(rows, BuildHunks(res))

	require.Len(t, starts, 2)
	require.Equal(t, "hunk-1-1", starts[1].ID)
	// a, -b, +B, c, -d ...
	require.Equal(t, "hunk-3-3", starts[4].ID)
}
