package callback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MatchesPattern(t *testing.T) {
	p := NewRef("row-*", "value")
	assert.True(t, p.IsPattern())
	assert.True(t, p.Matches(NewRef("row-3", "value")))
	assert.False(t, p.Matches(NewRef("row-3", "n_clicks")))
	assert.False(t, p.Matches(NewRef("col-3", "value")))
	assert.False(t, NewRef("a", "value").Matches(NewRef("b", "value")))
}

func TestParseRef(t *testing.T) {
	r, err := ParseRef("my.graph.figure")
	require.NoError(t, err)
	assert.Equal(t, NewRef("my.graph", "figure"), r)
	assert.Equal(t, "my.graph.figure", r.String())

	for _, bad := range []string{"", "nodot", ".value", "id."} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestUnion_FirstSeenOrder(t *testing.T) {
	a, b, c := NewRef("a", "v"), NewRef("b", "v"), NewRef("c", "v")
	all, maps := Union([]Ref{a, b}, []Ref{c, a})
	assert.Equal(t, []Ref{a, b, c}, all)
	assert.Equal(t, [][]int{{0, 1}, {2, 0}}, maps)
}

func TestReflect_ContextAndError(t *testing.T) {
	h, err := Reflect(func(ctx context.Context, a int, b string) (string, error) {
		if a < 0 {
			return "", errors.New("negative")
		}
		return b, nil
	})
	require.NoError(t, err)
	in, out := h.Arity()
	assert.Equal(t, 2, in)
	assert.Equal(t, 1, out)

	res, err := h.Call(context.Background(), []any{1, "x"})
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, res)

	_, err = h.Call(context.Background(), []any{-1, "x"})
	assert.EqualError(t, err, "negative")

	_, err = h.Call(context.Background(), []any{1})
	assert.ErrorIs(t, err, ErrArity)
}

func TestReflect_ConvertsNumbers(t *testing.T) {
	h := MustReflect(func(n int) int { return n * 2 })
	res, err := h.Call(context.Background(), []any{float64(4)})
	require.NoError(t, err)
	assert.Equal(t, []any{8}, res)

	_, err = h.Call(context.Background(), []any{3.7})
	assert.ErrorContains(t, err, "losing precision")

	u := MustReflect(func(n uint8) uint8 { return n })
	_, err = u.Call(context.Background(), []any{float64(-1)})
	assert.Error(t, err)
	_, err = u.Call(context.Background(), []any{float64(300)})
	assert.Error(t, err)
	res, err = u.Call(context.Background(), []any{float64(200)})
	require.NoError(t, err)
	assert.Equal(t, []any{uint8(200)}, res)
}

func TestReflect_RejectsNonFunc(t *testing.T) {
	_, err := Reflect(42)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFunc_ChecksResultCount(t *testing.T) {
	h := Func(0, 2, func(context.Context, []any) ([]any, error) { return []any{1}, nil })
	_, err := h.Call(context.Background(), nil)
	assert.ErrorIs(t, err, ErrArity)
}

func TestDescriptor_Validate(t *testing.T) {
	h := MustReflect(func(v any) any { return v })
	d := Descriptor{
		Outputs: []Ref{NewRef("a", "value")},
		Inputs:  []Ref{NewRef("b", "value")},
		Handler: h,
	}
	require.NoError(t, d.Validate())

	dup := d.Clone()
	dup.Outputs = []Ref{NewRef("a", "value"), NewRef("a", "value")}
	dup.Handler = MustReflect(func(v any) (any, any) { return v, v })
	assert.ErrorIs(t, dup.ValidateShape(), ErrInvalid)

	arity := d.Clone()
	arity.State = []Ref{NewRef("s", "data")}
	assert.ErrorIs(t, arity.ValidateShape(), ErrInvalid)

	noOut := Descriptor{Inputs: d.Inputs, Handler: MustReflect(func(any) {})}
	assert.NoError(t, noOut.ValidateShape())
	assert.ErrorIs(t, noOut.Validate(), ErrInvalid)
}

func TestDescriptor_CloneIsIndependent(t *testing.T) {
	d := Descriptor{Outputs: []Ref{NewRef("a", "value")}}
	c := d.Clone()
	c.Outputs[0].ComponentID = "z"
	assert.Equal(t, "a", d.Outputs[0].ComponentID)
}

func TestTriggered(t *testing.T) {
	ctx := WithTriggered(context.Background(), NewRef("row-2", "value"))
	assert.True(t, TriggeredAny(ctx, []Ref{NewRef("row-*", "value")}))
	assert.False(t, TriggeredAny(ctx, []Ref{NewRef("row-1", "value")}))
	assert.Nil(t, Triggered(context.Background()))
}

func TestNoUpdate(t *testing.T) {
	assert.True(t, IsNoUpdate(NoUpdate))
	assert.False(t, IsNoUpdate(nil))
	for _, v := range NoUpdates(3) {
		assert.True(t, IsNoUpdate(v))
	}

	raw, err := json.Marshal([]any{NoUpdate, 1})
	require.NoError(t, err)
	var back []any
	require.NoError(t, json.Unmarshal(raw, &back))
	RestoreNoUpdate(back)
	assert.True(t, IsNoUpdate(back[0]))
	assert.Equal(t, float64(1), back[1])
}
