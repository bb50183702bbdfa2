package rowcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowBytes_DeterministicOrder(t *testing.T) {
	r := Row{
		AllColumns: []Column{
			{Name: "id", Text: "1", Valid: true},
			{Name: "v", Text: "a", Valid: true},
		},
	}
	got := string(r.RowBytes())
	assert.Equal(t, "1␟a␟", got)
}

func TestRowBytes_NullSentinel(t *testing.T) {
	r := Row{
		AllColumns: []Column{
			{Name: "id", Text: "1", Valid: true},
			{Name: "v", Valid: false},
		},
	}
	assert.Equal(t, "1␟∅␟", string(r.RowBytes()))
}

func TestRowBytes_NullDiffersFromEmptyString(t *testing.T) {
	withNull := Row{AllColumns: []Column{{Name: "v", Valid: false}}}
	withEmpty := Row{AllColumns: []Column{{Name: "v", Text: "", Valid: true}}}

	require.NotEqual(t, withNull.RowBytes(), withEmpty.RowBytes())
}

func TestPKBytes_UsesOnlyPKColumns(t *testing.T) {
	r := Row{
		PKColumns: []Column{{Name: "id", Text: "42", Valid: true}},
		AllColumns: []Column{
			{Name: "id", Text: "42", Valid: true},
			{Name: "v", Text: "hello", Valid: true},
		},
	}
	assert.Equal(t, "42␟", string(r.PKBytes()))
}

func TestRowBytes_SensitiveToSingleByteChange(t *testing.T) {
	a := Row{AllColumns: []Column{{Name: "v", Text: "abc", Valid: true}}}
	b := Row{AllColumns: []Column{{Name: "v", Text: "abd", Valid: true}}}
	assert.NotEqual(t, a.RowBytes(), b.RowBytes())
}

func TestRowBytes_EqualForLogicallyEqualRows(t *testing.T) {
	a := Row{AllColumns: []Column{
		{Name: "id", Text: "1", Valid: true},
		{Name: "v", Text: "a", Valid: true},
	}}
	b := Row{AllColumns: []Column{
		{Name: "id", Text: "1", Valid: true},
		{Name: "v", Text: "a", Valid: true},
	}}
	assert.Equal(t, a.RowBytes(), b.RowBytes())
}

func TestPKBytes_MultiColumn(t *testing.T) {
	r := Row{PKColumns: []Column{
		{Name: "a", Text: "1", Valid: true},
		{Name: "b", Text: "2", Valid: true},
	}}
	assert.Equal(t, "1␟2␟", string(r.PKBytes()))
}
