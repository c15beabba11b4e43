// Package transform holds the built-in pipeline stages. Each type
// implements proxy.Transform; the ones that need to see every registration
// also implement proxy.Closer.
//
// Rewrite-only stages (Trigger, Prefix, NoOutput, Memoize, Instrument) act
// on one descriptor at a time. Group, Multiplex and Serverside use the close
// phase to merge or re-wrap records across callbacks.
package transform
