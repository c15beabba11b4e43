package proxy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism/callback"
	"prism/dispatch"
)

type captureAdapter struct {
	got []callback.Descriptor
	err error
}

func (c *captureAdapter) Register(_ context.Context, d callback.Descriptor) error {
	if c.err != nil {
		return c.err
	}
	c.got = append(c.got, d)
	return nil
}

// countingTransform tags the handler result so wrapper order is visible.
type countingTransform struct {
	name    string
	rewrite int
	close   int
	trace   *[]string
}

func (c *countingTransform) Name() string { return c.name }

func (c *countingTransform) Rewrite(d callback.Descriptor) (callback.Descriptor, error) {
	c.rewrite++
	inner := d.Handler
	in, out := inner.Arity()
	d.Handler = callback.Func(in, out, func(ctx context.Context, args []any) ([]any, error) {
		*c.trace = append(*c.trace, c.name)
		return inner.Call(ctx, args)
	})
	return d, nil
}

func (c *countingTransform) OnClose(context.Context, *Ledger) error {
	c.close++
	return nil
}

var (
	a = callback.NewRef("a", "value")
	b = callback.NewRef("b", "value")
)

func echo(out, in callback.Ref) callback.Descriptor {
	return callback.Descriptor{
		Outputs: []callback.Ref{out},
		Inputs:  []callback.Ref{in},
		Handler: callback.MustReflect(func(v any) any { return v }),
	}
}

func TestProxy_IdentityPipeline(t *testing.T) {
	ad := &captureAdapter{}
	p := New(ad)
	require.NoError(t, p.Configure())

	_, err := p.Register(echo(a, b))
	require.NoError(t, err)
	require.NoError(t, p.Close(context.Background()))

	require.Len(t, ad.got, 1)
	d := ad.got[0]
	assert.Equal(t, []callback.Ref{a}, d.Outputs)
	assert.Equal(t, []callback.Ref{b}, d.Inputs)
	assert.Empty(t, d.State)

	res, err := d.Handler.Call(context.Background(), []any{"hello"})
	require.NoError(t, err)
	assert.Equal(t, []any{"hello"}, res)
}

func TestProxy_HooksCalledOnceAndWrappersUnwindInReverse(t *testing.T) {
	var trace []string
	t1 := &countingTransform{name: "t1", trace: &trace}
	t2 := &countingTransform{name: "t2", trace: &trace}
	t3 := &countingTransform{name: "t3", trace: &trace}

	ad := &captureAdapter{}
	p := New(ad)
	require.NoError(t, p.Configure(t1, t2, t3))
	for i := 0; i < 4; i++ {
		_, err := p.Register(echo(callback.NewRef(fmt.Sprintf("o%d", i), "value"), b))
		require.NoError(t, err)
	}
	require.NoError(t, p.Close(context.Background()))

	for _, tr := range []*countingTransform{t1, t2, t3} {
		assert.Equal(t, 4, tr.rewrite, tr.name)
		assert.Equal(t, 1, tr.close, tr.name)
	}

	_, err := ad.got[0].Handler.Call(context.Background(), []any{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t2", "t1"}, trace)
}

func TestProxy_RecordsStages(t *testing.T) {
	var trace []string
	p := New(&captureAdapter{})
	require.NoError(t, p.Configure(&countingTransform{name: "x", trace: &trace}))
	h, err := p.Register(echo(a, b))
	require.NoError(t, err)

	require.Len(t, h.Stages(), 1)
	assert.Equal(t, "x", h.Stages()[0].Transform)
	assert.Equal(t, []callback.Ref{a}, h.Final().Outputs)
	assert.Equal(t, "a.value", h.Name)
}

func TestProxy_InvalidDescriptor(t *testing.T) {
	p := New(&captureAdapter{})
	require.NoError(t, p.Configure())

	bad := echo(a, b)
	bad.State = []callback.Ref{callback.NewRef("s", "data")}
	_, err := p.Register(bad)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	dup := callback.Descriptor{
		Outputs: []callback.Ref{a, a},
		Inputs:  []callback.Ref{b},
		Handler: callback.MustReflect(func(v any) (any, any) { return v, v }),
	}
	_, err = p.Register(dup)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	noOut := callback.Descriptor{
		Inputs:  []callback.Ref{b},
		Handler: callback.MustReflect(func(any) {}),
	}
	_, err = p.Register(noOut)
	assert.ErrorIs(t, err, ErrInvalidDescriptor, "zero outputs needs a transform to supply one")

	h, err := p.Register(callback.Descriptor{Outputs: []callback.Ref{a}, Inputs: []callback.Ref{b}})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
	assert.Empty(t, h.Final().Outputs)
	assert.Nil(t, h.Stages())
}

func TestProxy_PhaseErrors(t *testing.T) {
	ctx := context.Background()

	p := New(&captureAdapter{})
	assert.ErrorIs(t, p.Close(ctx), ErrNotConfigured)

	p = New(&captureAdapter{})
	_, err := p.Register(echo(a, b))
	require.NoError(t, err)
	assert.ErrorIs(t, p.Configure(), ErrConfigureAfterRegister)

	p = New(&captureAdapter{})
	require.NoError(t, p.Configure())
	assert.ErrorIs(t, p.Configure(), ErrAlreadyConfigured)
	require.NoError(t, p.Close(ctx))
	assert.ErrorIs(t, p.Close(ctx), ErrPipelineAlreadyClosed)
	_, err = p.Register(echo(a, b))
	assert.ErrorIs(t, err, ErrPipelineAlreadyClosed)
	assert.True(t, p.Closed())
}

func TestProxy_ConflictingOutputs(t *testing.T) {
	ad := &captureAdapter{}
	p := New(ad)
	require.NoError(t, p.Configure())
	_, err := p.Register(echo(a, b))
	require.NoError(t, err)
	_, err = p.Register(echo(a, callback.NewRef("c", "value")))
	require.NoError(t, err)

	err = p.Close(context.Background())
	assert.ErrorIs(t, err, ErrConflictingOutputs)
	assert.Empty(t, ad.got)
}

func TestProxy_AdapterDuplicateOutput(t *testing.T) {
	ad := &captureAdapter{err: fmt.Errorf("%w: a.value", dispatch.ErrDuplicateOutput)}
	p := New(ad)
	require.NoError(t, p.Configure())
	_, err := p.Register(echo(a, b))
	require.NoError(t, err)
	assert.ErrorIs(t, p.Close(context.Background()), dispatch.ErrDuplicateOutput)
}

func TestLedger_MergeReplaceRemove(t *testing.T) {
	var l Ledger
	r1 := &Record{Final: echo(a, b)}
	r2 := &Record{Final: echo(callback.NewRef("x", "value"), b)}
	r3 := &Record{Final: echo(callback.NewRef("y", "value"), b)}
	l.add(r1)
	l.add(r2)
	l.add(r3)

	merged, err := l.Merge("test", []*Record{r3, r1}, echo(a, b))
	require.NoError(t, err)
	recs := l.Records()
	require.Len(t, recs, 2)
	assert.Same(t, merged, recs[0])
	assert.Same(t, r2, recs[1])
	assert.Equal(t, "test", merged.Origin)
	assert.Len(t, merged.Members, 2)

	_, err = l.Merge("test", []*Record{r1}, echo(a, b))
	assert.Error(t, err, "r1 is no longer live")

	require.NoError(t, l.Replace(r2, echo(callback.NewRef("z", "value"), b)))
	assert.Equal(t, "z.value", r2.Final.Outputs[0].String())
	assert.ErrorIs(t, l.Replace(r2, callback.Descriptor{}), ErrInvalidDescriptor)

	require.NoError(t, l.Remove(r2))
	assert.Len(t, l.Records(), 1)
	assert.Error(t, l.Remove(r2))
}

func TestProxy_Describe(t *testing.T) {
	p := New(&captureAdapter{})
	require.NoError(t, p.Configure())
	_, err := p.Register(echo(a, b))
	require.NoError(t, err)

	sums := p.Describe()
	require.Len(t, sums, 1)
	assert.Equal(t, []string{"a.value"}, sums[0].Outputs)
	assert.Equal(t, []string{"b.value"}, sums[0].Inputs)
}
