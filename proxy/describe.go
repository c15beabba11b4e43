package proxy

// Summary is a serialisable view of a record.
type Summary struct {
	ID      int      `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Outputs []string `json:"outputs" yaml:"outputs"`
	Inputs  []string `json:"inputs" yaml:"inputs"`
	State   []string `json:"state,omitempty" yaml:"state,omitempty"`
	Stages  []string `json:"stages,omitempty" yaml:"stages,omitempty"`
	Origin  string   `json:"origin,omitempty" yaml:"origin,omitempty"`
	Members []int    `json:"members,omitempty" yaml:"members,omitempty"`
}

func (r *Record) Summary() Summary {
	s := Summary{
		ID:      r.ID,
		Name:    r.Final.Label(),
		Outputs: refStrings(r.Final.Outputs),
		Inputs:  refStrings(r.Final.Inputs),
		State:   refStrings(r.Final.State),
		Origin:  r.Origin,
	}
	for _, st := range r.Stages {
		s.Stages = append(s.Stages, st.Transform)
	}
	for _, m := range r.Members {
		s.Members = append(s.Members, m.ID)
	}
	return s
}

// Describe summarises every live record in ledger order.
func (p *Proxy) Describe() []Summary {
	recs := p.Records()
	out := make([]Summary, len(recs))
	for i, r := range recs {
		out[i] = r.Summary()
	}
	return out
}

func refStrings[T interface{ String() string }](refs []T) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}
