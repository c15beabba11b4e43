// Package callback defines the values exchanged between application code,
// the transform pipeline and the dispatch engine: signal references,
// callback descriptors, handlers and the no-update sentinel.
package callback
