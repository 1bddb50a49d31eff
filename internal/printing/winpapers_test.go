package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPaperList(t *testing.T) {
	ids := []uint16{9, 1, 5}
	names := []string{"A4\x00\x00", "Letter", "Legal"}
	dims := []paperDim{{2100, 2970}, {2159, 2794}, {2159, 3556}}

	papers := buildPaperList(ids, names, dims)
	require.Len(t, papers, 3)
	assert.Equal(t, PaperSize{ID: 9, Name: "A4", Width: 2100, Height: 2970}, papers[0])
	assert.Equal(t, "Letter", papers[1].Name)
	assert.Equal(t, 3556, papers[2].Height)
}

func TestBuildPaperListLengthMismatch(t *testing.T) {
	ids := []uint16{9, 1}
	names := []string{"A4"}
	dims := []paperDim{{2100, 2970}, {2159, 2794}}
	assert.Nil(t, buildPaperList(ids, names, dims))
}

func TestBuildPaperListMissingSequence(t *testing.T) {
	assert.Nil(t, buildPaperList(nil, []string{"A4"}, []paperDim{{1, 1}}))
	assert.Nil(t, buildPaperList([]uint16{9}, nil, []paperDim{{1, 1}}))
	assert.Nil(t, buildPaperList([]uint16{9}, []string{"A4"}, nil))
}

func TestBuildPaperListSkipsJunkEntries(t *testing.T) {
	ids := []uint16{9, 1, 5}
	names := []string{"A4", "\x00\x00", "Legal"}
	dims := []paperDim{{2100, 2970}, {2159, 2794}, {0, 3556}}

	papers := buildPaperList(ids, names, dims)
	require.Len(t, papers, 1)
	assert.Equal(t, "A4", papers[0].Name)
}
