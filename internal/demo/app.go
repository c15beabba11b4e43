// Package demo is a small application used by the prism CLI to exercise a
// pipeline end to end. Its callbacks touch every built-in transform.
package demo

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"prism/callback"
	"prism/emit"
	"prism/internal/pipeline"
)

var (
	Name    = callback.NewRef("name", "value")
	N       = callback.NewRef("n", "value")
	Reset   = callback.NewRef("reset", "n_clicks")
	Submit  = callback.NewRef("submit", "n_clicks")
	Dataset = callback.NewRef("dataset", "data")

	Greeting = callback.NewRef("greeting", "children")
	Fib      = callback.NewRef("fib", "children")
	StatsLen = callback.NewRef("stats-len", "children")
	StatsSq  = callback.NewRef("stats-sq", "children")
	Status   = callback.NewRef("status", "children")
	Echo     = callback.NewRef("echo", "children")
	Summary  = callback.NewRef("summary", "children")
)

// Register installs the application on r. Callbacks that only make sense
// with a transform the manifest leaves out are skipped.
func Register(r *pipeline.Runner) error {
	descs := []callback.Descriptor{
		{
			Name:    "greet",
			Outputs: []callback.Ref{Greeting},
			Inputs:  []callback.Ref{Name},
			Handler: callback.MustReflect(func(name string) string { return "Hello, " + name }),
		},
		{
			Name:    "fib",
			Outputs: []callback.Ref{Fib},
			Inputs:  []callback.Ref{N},
			Memoize: true,
			Handler: callback.MustReflect(fib),
		},
		{
			Name:    "stats-len",
			Outputs: []callback.Ref{StatsLen},
			Inputs:  []callback.Ref{Name},
			Group:   "stats-main",
			Handler: callback.MustReflect(func(name string) int { return len(name) }),
		},
		{
			Name:    "stats-sq",
			Outputs: []callback.Ref{StatsSq},
			Inputs:  []callback.Ref{N},
			Group:   "stats-*",
			Handler: callback.MustReflect(func(n int) int { return n * n }),
		},
		{
			Name:       "dataset",
			Outputs:    []callback.Ref{Dataset},
			Inputs:     []callback.Ref{N},
			Serverside: serverside(r),
			Handler: callback.MustReflect(func(n int) ([]int, error) {
				if n < 0 {
					return nil, callback.ErrPreventUpdate
				}
				rows := make([]int, n)
				for i := range rows {
					rows[i] = i
				}
				return rows, nil
			}),
		},
		{
			Name:    "summary",
			Outputs: []callback.Ref{Summary},
			Inputs:  []callback.Ref{Dataset},
			Handler: callback.MustReflect(func(rows any) string { return fmt.Sprintf("%d rows", length(rows)) }),
		},
		{
			Name:    "status-reset",
			Outputs: []callback.Ref{Status},
			Inputs:  []callback.Ref{Reset},
			Handler: callback.MustReflect(func(any) string { return "reset" }),
		},
	}

	if r.Has("multiplex") {
		descs = append(descs, callback.Descriptor{
			Name:    "status-name",
			Outputs: []callback.Ref{Status},
			Inputs:  []callback.Ref{Name},
			Handler: callback.MustReflect(func(name string) string { return "named " + name }),
		})
	}
	if r.Has("trigger") {
		descs = append(descs, callback.Descriptor{
			Name:     "echo",
			Outputs:  []callback.Ref{Echo},
			State:    []callback.Ref{Name},
			Triggers: []callback.Ref{Submit},
			Handler:  callback.MustReflect(func(name string) string { return "submitted " + strings.TrimSpace(name) }),
		})
	}
	if r.Has("no_output") {
		descs = append(descs, audit(r.Emitter()))
	}

	for _, d := range descs {
		if _, err := r.Register(d); err != nil {
			return fmt.Errorf("demo: %s: %w", d.Name, err)
		}
	}
	return nil
}

// audit publishes every name change and updates nothing.
func audit(em emit.Adapter) callback.Descriptor {
	return callback.Descriptor{
		Name:   "audit",
		Inputs: []callback.Ref{Name},
		Handler: callback.Func(1, 0, func(ctx context.Context, args []any) ([]any, error) {
			if em == nil {
				return nil, nil
			}
			return nil, em.Emit(ctx, Name.String(), []byte(fmt.Sprint(args[0])))
		}),
	}
}

func serverside(r *pipeline.Runner) []callback.Ref {
	if !r.Has("serverside") {
		return nil
	}
	return []callback.Ref{Dataset}
}

func fib(n int) (int, error) {
	if n < 0 {
		return 0, callback.ErrPreventUpdate
	}
	a, b := 0, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	return a, nil
}

func length(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return 0
	}
}
