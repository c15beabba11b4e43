package demo

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/callback"
	"prism/emit/stdout"
	"prism/internal/config"
	"prism/internal/pipeline"
)

const fullManifest = `schema_version: v1
transforms:
  - type: prefix
    options: { prefix: demo }
  - type: trigger
  - type: no_output
  - type: serverside
  - type: memoize
  - type: group
  - type: multiplex
  - type: instrument
`

func start(t *testing.T, manifest string) (*pipeline.Runner, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.ParsePipelineSpec([]byte(manifest))
	require.NoError(t, err)
	var buf bytes.Buffer
	r, err := pipeline.Build(cfg, config.Settings{}, pipeline.WithEmitter(stdout.New(&buf, stdout.Config{})))
	require.NoError(t, err)
	require.NoError(t, Register(r))
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Close() })
	return r, &buf
}

func value(t *testing.T, r *pipeline.Runner, ref callback.Ref) any {
	t.Helper()
	vals, err := r.Values()
	require.NoError(t, err)
	return vals[r.Resolve(ref)]
}

func TestDemo_FullPipeline(t *testing.T) {
	r, buf := start(t, fullManifest)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, Name, "ada"))
	assert.Equal(t, "Hello, ada", value(t, r, Greeting))
	assert.Equal(t, 3, value(t, r, StatsLen))
	assert.Nil(t, value(t, r, StatsSq))
	assert.Equal(t, "named ada", value(t, r, Status))
	assert.Equal(t, "[emit] name.value ada\n", buf.String())

	require.NoError(t, r.Set(ctx, N, 10))
	assert.Equal(t, 55, value(t, r, Fib))
	assert.Equal(t, 100, value(t, r, StatsSq))

	key := value(t, r, Dataset)
	require.IsType(t, "", key)
	require.NoError(t, r.Set(ctx, Dataset, key))
	assert.Equal(t, "10 rows", value(t, r, Summary))

	require.NoError(t, r.Set(ctx, Reset, 1))
	assert.Equal(t, "reset", value(t, r, Status))

	require.NoError(t, r.Set(ctx, Submit, 1))
	assert.Equal(t, "submitted ada", value(t, r, Echo))

	require.Len(t, r.Hidden(), 1)

	var grouped int
	for _, s := range r.Describe() {
		if s.Origin == "group" {
			grouped++
			assert.Len(t, s.Members, 2)
		}
	}
	assert.Equal(t, 1, grouped, "stats-* joins stats-main")
}

func TestDemo_MinimalPipeline(t *testing.T) {
	r, buf := start(t, "schema_version: v1\n")
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, Name, "bo"))
	assert.Equal(t, "Hello, bo", value(t, r, Greeting))
	assert.Equal(t, 2, value(t, r, StatsLen))
	assert.Nil(t, value(t, r, Status))
	assert.Empty(t, buf.String())

	require.NoError(t, r.Set(ctx, N, 4))
	rows := value(t, r, Dataset)
	assert.Equal(t, []int{0, 1, 2, 3}, rows)
	assert.Len(t, r.Describe(), 7)
}

func TestDemo_NegativeIsPrevented(t *testing.T) {
	r, _ := start(t, fullManifest)
	require.NoError(t, r.Set(context.Background(), N, -1))
	assert.Nil(t, value(t, r, Fib))
	assert.Nil(t, value(t, r, Dataset))
}
