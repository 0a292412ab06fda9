package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		queries []string
		macros  []string
		want    []string
	}{
		{
			name:    "no macros still prepends an empty line",
			queries: []string{"VP < NP"},
			want:    []string{"\nVP < NP"},
		},
		{
			name:    "one macro",
			queries: []string{"`VP < NP", "`VP < PP"},
			macros:  []string{"@MACRO;"},
			want:    []string{"@MACRO;\n`VP < NP", "@MACRO;\n`VP < PP"},
		},
		{
			name:    "all macros in order for every query",
			queries: []string{"`A"},
			macros:  []string{"@M1 x;", "@M2 y;", "@M3 z;"},
			want:    []string{"@M1 x;\n@M2 y;\n@M3 z;\n`A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewSet(tt.queries, tt.macros)
			require.NoError(t, err)

			assert.Equal(t, tt.want, set.Texts())
			for i := range tt.queries {
				assert.Equal(t, tt.want[i], set.Text(i))
			}
		})
	}
}

func TestFromString(t *testing.T) {
	t.Parallel()
	set, err := FromString("  `VP < `NP < `PP \n")
	require.NoError(t, err)

	require.Equal(t, 1, set.Len())
	assert.Empty(t, set.Macros())
	assert.Equal(t, "\n`VP < `NP < `PP", set.Text(0))

	n, err := set.FieldCount(0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = FromString("   ")
	assert.ErrorIs(t, err, ErrNoQueries)
}

func TestSetFieldCount(t *testing.T) {
	t.Parallel()
	set, err := NewSet([]string{"`A . `B", "`C"}, nil)
	require.NoError(t, err)

	n, err := set.FieldCount(0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = set.FieldCount(1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = set.FieldCount(2)
	assert.Error(t, err)

	maxCount, err := set.MaxFieldCount()
	require.NoError(t, err)
	assert.Equal(t, 2, maxCount)
	assert.Len(t, set.Warnings(), 1)
}

func TestEmptySet(t *testing.T) {
	t.Parallel()
	_, err := NewSet(nil, []string{"@M;"})
	assert.ErrorIs(t, err, ErrNoQueries)

	var set *Set
	assert.ErrorIs(t, set.Validate(), ErrNoQueries)

	empty := &Set{}
	_, err = empty.FieldCount(0)
	assert.ErrorIs(t, err, ErrNoQueries)
	_, err = empty.MaxFieldCount()
	assert.ErrorIs(t, err, ErrNoQueries)
}
