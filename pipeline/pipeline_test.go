package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/treetab/treetab/internal"
	"github.com/treetab/treetab/internal/assemble"
	"github.com/treetab/treetab/internal/table"
	tt "github.com/treetab/treetab/internal/types"
	"github.com/treetab/treetab/query"
)

var v = tt.Value

type mockInvoker struct {
	mock.Mock
}

func (m *mockInvoker) Invoke(ctx context.Context, q string, flag tt.OutputFlag) (tt.RawResult, error) {
	args := m.Called(q, flag)
	return args.Get(0).(tt.RawResult), args.Error(1)
}

func (m *mockInvoker) respond(q string, flag tt.OutputFlag, text string) {
	m.On("Invoke", q, flag).Return(tt.RawResult{Text: text}, nil).Once()
}

func TestRunTwoQueriesWithMacro(t *testing.T) {
	t.Parallel()
	set, err := query.ParseLines([]string{
		"@MACRO;",
		"`VP < NP",
		"`VP < PP",
	})
	require.NoError(t, err)

	inv := new(mockInvoker)
	inv.respond("@MACRO;\n`VP < NP", "", "(VP (V saw) (NP it))\n(VP (V ate) (NP them))\n")
	inv.respond("@MACRO;\n`VP < NP", "t", "saw it\nate them\n")
	inv.respond("@MACRO;\n`VP < PP", "", "(VP (V sat) (PP on it))\n")
	inv.respond("@MACRO;\n`VP < PP", "t", "sat on it\n")

	logger, _ := zap.NewProduction()
	result, err := Run(context.Background(), logger, inv, set, Options{Flags: []tt.OutputFlag{"", "t"}})
	require.NoError(t, err)
	inv.AssertExpectations(t)

	assert.Equal(t, []string{"0", "1", table.QueryIndexColumn}, result.Names())
	assert.Equal(t, []int{0, 0, 1}, result.QueryIndex())
	assert.Equal(t, [][]tt.Cell{
		{v("(VP (V saw) (NP it))"), v("saw it"), v("0")},
		{v("(VP (V ate) (NP them))"), v("ate them"), v("0")},
		{v("(VP (V sat) (PP on it))"), v("sat on it"), v("1")},
	}, result.Rows())
}

func TestRunInvocationOrder(t *testing.T) {
	t.Parallel()
	set, err := query.NewSet([]string{"`A", "`B"}, nil)
	require.NoError(t, err)

	var calls []string
	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			calls = append(calls, args.String(0)+"|"+string(args.Get(1).(tt.OutputFlag)))
		}).
		Return(tt.RawResult{Text: "x\n"}, nil)

	_, err = Run(context.Background(), nil, inv, set, Options{Flags: []tt.OutputFlag{"t", "u", "w"}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"\n`A|t", "\n`A|u", "\n`A|w",
		"\n`B|t", "\n`B|u", "\n`B|w",
	}, calls)
}

func TestRunDropsEmptyQueries(t *testing.T) {
	t.Parallel()
	set, err := query.NewSet([]string{"`A . `B", "`C . `D", "`E . `F"}, nil)
	require.NoError(t, err)

	inv := new(mockInvoker)
	inv.respond("\n`A . `B", "", "a1\na2\n")
	inv.respond("\n`C . `D", "", "")
	inv.respond("\n`E . `F", "", "e1\ne2\ne3\n")

	result, err := Run(context.Background(), nil, inv, set, Options{
		Flags:   []tt.OutputFlag{""},
		Columns: []string{"head", "dep"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 2}, result.QueryIndex())
	head, _ := result.Column("head")
	dep, _ := result.Column("dep")
	assert.Equal(t, []tt.Cell{v("a1"), v("e1"), v("e3")}, head)
	assert.Equal(t, []tt.Cell{v("a2"), v("e2"), nil}, dep)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	set, err := query.FromString("`NP")
	require.NoError(t, err)

	t.Run("empty set", func(t *testing.T) {
		_, err := Run(ctx, nil, new(mockInvoker), &query.Set{}, Options{Flags: []tt.OutputFlag{""}})
		assert.ErrorIs(t, err, query.ErrNoQueries)
	})

	t.Run("no flags", func(t *testing.T) {
		_, err := Run(ctx, nil, new(mockInvoker), set, Options{})
		assert.ErrorIs(t, err, ErrNoFlags)
	})

	t.Run("bad column names", func(t *testing.T) {
		_, err := Run(ctx, nil, new(mockInvoker), set, Options{Flags: []tt.OutputFlag{"", "t"}, Columns: []string{"a"}})
		assert.ErrorIs(t, err, table.ErrColumnNames)
	})

	t.Run("invoker error", func(t *testing.T) {
		inv := new(mockInvoker)
		inv.On("Invoke", "\n`NP", tt.OutputFlag("")).Return(tt.RawResult{}, errors.New("exec failed"))
		_, err := Run(ctx, nil, inv, set, Options{Flags: []tt.OutputFlag{""}})
		assert.ErrorContains(t, err, "exec failed")
	})

	t.Run("engine failure", func(t *testing.T) {
		inv := new(mockInvoker)
		inv.On("Invoke", "\n`NP", tt.OutputFlag("")).Return(tt.RawResult{Text: "syntax error\n", ExitCode: 2}, nil)

		_, err := Run(ctx, nil, inv, set, Options{Flags: []tt.OutputFlag{""}, FailOnEngineError: true})
		assert.ErrorIs(t, err, internal.ErrEngineFailed)

		// without the option the engine output is kept as data
		result, err := Run(ctx, nil, inv, set, Options{Flags: []tt.OutputFlag{""}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.NumRows())
	})

	t.Run("ragged rejected", func(t *testing.T) {
		inv := new(mockInvoker)
		inv.On("Invoke", "\n`NP", tt.OutputFlag("")).Return(tt.RawResult{Text: "a\nb\n"}, nil)
		inv.On("Invoke", "\n`NP", tt.OutputFlag("t")).Return(tt.RawResult{Text: "a\n"}, nil)

		_, err := Run(ctx, nil, inv, set, Options{Flags: []tt.OutputFlag{"", "t"}, Ragged: assemble.RejectRagged})
		assert.ErrorIs(t, err, assemble.ErrRaggedFlags)

		result, err := Run(ctx, nil, inv, set, Options{Flags: []tt.OutputFlag{"", "t"}})
		require.NoError(t, err)
		col, _ := result.Column("1")
		assert.Equal(t, []tt.Cell{v("a"), nil}, col)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Run(canceled, nil, new(mockInvoker), set, Options{Flags: []tt.OutputFlag{""}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunFileAndString(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("# particles\n@P PRT;\n`VP < `@P\n"), 0o644))

	inv := new(mockInvoker)
	inv.respond("@P PRT;\n`VP < `@P", "t", "look up\nup\n")
	inv.respond("\nNP", "t", "the dog\n")

	var progress bytes.Buffer
	opts := Options{Flags: []tt.OutputFlag{"t"}, Progress: &progress}

	result, err := RunFile(context.Background(), zap.NewNop(), inv, path, opts)
	require.NoError(t, err)
	assert.Equal(t, [][]tt.Cell{{v("look up"), v("up"), v("0")}}, result.Rows())
	assert.True(t, result.SingleQuery())
	assert.Len(t, result.Queries.Macros(), 1)
	assert.NotEmpty(t, progress.String())

	result, err = RunString(context.Background(), nil, inv, "NP", opts)
	require.NoError(t, err)
	assert.Equal(t, [][]tt.Cell{{v("the dog"), v("0")}}, result.Rows())
	assert.True(t, result.SingleQuery())

	_, err = RunFile(context.Background(), nil, inv, filepath.Join(dir, "missing"), opts)
	assert.Error(t, err)
	inv.AssertExpectations(t)
}

func TestRunFileMultipleQueries(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "queries.q")
	require.NoError(t, os.WriteFile(path, []byte("`NN\n`VB\n"), 0o644))

	inv := new(mockInvoker)
	inv.respond("\n`NN", "t", "dog\n")
	inv.respond("\n`VB", "t", "ran\n")

	result, err := RunFile(context.Background(), nil, inv, path, Options{Flags: []tt.OutputFlag{"t"}})
	require.NoError(t, err)
	inv.AssertExpectations(t)

	assert.False(t, result.SingleQuery())
	assert.Equal(t, 2, result.Queries.Len())
	assert.Equal(t, []int{0, 1}, result.QueryIndex())
}

func TestAssembleAllKeepsQueryOrder(t *testing.T) {
	t.Parallel()
	queries := make([]string, 50)
	results := make([][]assemble.FlagResult, 50)
	for i := range queries {
		queries[i] = "`X"
		text := ""
		if i%3 != 0 {
			text = string(rune('a'+i%26)) + "\n"
		}
		results[i] = []assemble.FlagResult{{Flag: "t", Text: text}}
	}
	set, err := query.NewSet(queries, nil)
	require.NoError(t, err)

	fragments, err := AssembleAll(context.Background(), set, results, 1, assemble.PadRagged)
	require.NoError(t, err)
	for i, f := range fragments {
		if i%3 == 0 {
			assert.Nil(t, f)
			continue
		}
		require.NotNil(t, f)
		assert.Equal(t, string(rune('a'+i%26)), *f.Columns[0][0])
	}

	_, err = AssembleAll(context.Background(), set, results[:3], 1, assemble.PadRagged)
	assert.Error(t, err)
}
