package transform

import (
	"prism/callback"
)

// union describes a physical callback built from several logical ones.
// Arguments of the physical handler are the union state followed by the
// union inputs.
type union struct {
	desc    callback.Descriptor
	members []callback.Descriptor
	state   [][]int
	inputs  [][]int
	outputs [][]int
}

func newUnion(members []callback.Descriptor) *union {
	var outs, ins, sts, srv [][]callback.Ref
	for _, m := range members {
		outs = append(outs, m.Outputs)
		ins = append(ins, m.Inputs)
		sts = append(sts, m.State)
		srv = append(srv, m.Serverside)
	}
	u := &union{members: members}
	u.desc.Outputs, u.outputs = callback.Union(outs...)
	u.desc.Inputs, u.inputs = callback.Union(ins...)
	u.desc.State, u.state = callback.Union(sts...)
	u.desc.Serverside, _ = callback.Union(srv...)
	return u
}

// argsFor picks member i's arguments out of the physical argument list.
func (u *union) argsFor(i int, args []any) []any {
	nState := len(u.desc.State)
	out := make([]any, 0, len(u.state[i])+len(u.inputs[i]))
	for _, pos := range u.state[i] {
		out = append(out, args[pos])
	}
	for _, pos := range u.inputs[i] {
		out = append(out, args[nState+pos])
	}
	return out
}

// place writes member i's results into the physical result list. NoUpdate
// values never overwrite what another member produced.
func (u *union) place(i int, res []any, into []any) {
	for j, v := range res {
		if callback.IsNoUpdate(v) {
			continue
		}
		into[u.outputs[i][j]] = v
	}
}

func (u *union) descriptor(name string, h callback.HandlerFunc) callback.Descriptor {
	d := u.desc.Clone()
	d.Name = name
	d.Handler = callback.Func(len(d.State)+len(d.Inputs), len(d.Outputs), h)
	return d
}
