package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chojs23/mend/internal/linediff"
)

const header = "diff --git a/f.txt b/f.txt\nindex 1111111..2222222 100644\n--- a/f.txt\n+++ b/f.txt\n"

const zeroContext = header +
	"@@ -2 +2 @@\n" +
	"-old two\n" +
	"+new two\n" +
	"@@ -5,0 +6 @@\n" +
	"+inserted\n" +
	"@@ -8,2 +8,0 @@\n" +
	"-gone a\n" +
	"-gone b\n" +
	"\\ No newline at end of file\n"

func TestParseZeroContext(t *testing.T) {
	p, err := ParseZeroContext(zeroContext)
	require.NoError(t, err)

	require.Len(t, p.Header, 4)
	require.Len(t, p.Hunks, 3)

	require.Equal(t, []Line{
		{Kind: Remove, Content: "old two", OldLine: 2, OldAnchor: 2, NewAnchor: 2},
		{Kind: Add, Content: "new two", NewLine: 2, OldAnchor: 3, NewAnchor: 2},
	}, p.Hunks[0].Lines)

	require.Equal(t, Line{Kind: Add, Content: "inserted", NewLine: 6, OldAnchor: 5, NewAnchor: 6}, p.Hunks[1].Lines[0])

	require.Len(t, p.Hunks[2].Lines, 2)
	require.Equal(t, 9, p.Hunks[2].Lines[1].OldLine)
}

func TestParseZeroContextStopsAtNextFile(t *testing.T) {
	diff := zeroContext + "diff --git a/g.txt b/g.txt\n--- a/g.txt\n+++ b/g.txt\n@@ -1 +1 @@\n-x\n+y\n"
	p, err := ParseZeroContext(diff)
	require.NoError(t, err)
	require.Len(t, p.Hunks, 3)
}

func TestParseZeroContextErrors(t *testing.T) {
	_, err := ParseZeroContext("")
	require.ErrorIs(t, err, ErrMalformedPatch)

	_, err = ParseZeroContext(header)
	require.ErrorIs(t, err, ErrNoHunks)

	_, err = ParseZeroContext(header + "@@ -x +1 @@\n")
	require.ErrorIs(t, err, ErrMalformedPatch)

	_, err = ParseZeroContext(header + "@@ broken\n")
	require.ErrorIs(t, err, ErrMalformedPatch)
}

func TestBuildLinePatch(t *testing.T) {
	p, err := ParseZeroContext(zeroContext)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target linediff.StageTarget
		body   string
	}{
		{
			name:   "modified pair",
			target: linediff.StageTarget{OldLineNumber: 2, NewLineNumber: 2},
			body:   "@@ -2,1 +2,1 @@\n-old two\n+new two\n",
		},
		{
			name:   "addition",
			target: linediff.StageTarget{NewLineNumber: 6},
			body:   "@@ -5,0 +6,1 @@\n+inserted\n",
		},
		{
			name:   "removal",
			target: linediff.StageTarget{OldLineNumber: 9},
			body:   "@@ -9,1 +8,0 @@\n-gone b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildLinePatch(p, tt.target)
			require.NoError(t, err)
			require.Equal(t, header+tt.body, got)
		})
	}
}

func TestBuildLinePatchErrors(t *testing.T) {
	p, err := ParseZeroContext(zeroContext)
	require.NoError(t, err)

	_, err = BuildLinePatch(p, linediff.StageTarget{})
	require.ErrorIs(t, err, ErrEmptyTarget)

	_, err = BuildLinePatch(p, linediff.StageTarget{NewLineNumber: 42})
	require.ErrorIs(t, err, ErrLineNotFound)

	_, err = BuildLinePatch(p, linediff.StageTarget{OldLineNumber: 2, NewLineNumber: 6})
	require.True(t, errors.Is(err, ErrHunkMismatch))
}
