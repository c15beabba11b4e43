package callback

import "context"

type triggeredKey struct{}

// WithTriggered records the refs whose change caused the current dispatch.
// The first ref is the most recent change.
func WithTriggered(ctx context.Context, refs ...Ref) context.Context {
	return context.WithValue(ctx, triggeredKey{}, cloneRefs(refs))
}

// Triggered returns the refs recorded by WithTriggered, or nil.
func Triggered(ctx context.Context) []Ref {
	refs, _ := ctx.Value(triggeredKey{}).([]Ref)
	return refs
}

// TriggeredAny reports whether any of refs was triggered. Pattern refs match
// by glob.
func TriggeredAny(ctx context.Context, refs []Ref) bool {
	for _, t := range Triggered(ctx) {
		if MatchesAny(refs, t) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether t is addressed by any of refs.
func MatchesAny(refs []Ref, t Ref) bool {
	for _, r := range refs {
		if r.Matches(t) {
			return true
		}
	}
	return false
}
