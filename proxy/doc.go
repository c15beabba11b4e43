// Package proxy implements the registration pipeline that sits between
// application callbacks and a dispatch engine.
//
// A Proxy is used in three phases. Configure fixes an ordered list of
// transforms. Register validates each callback descriptor and threads it
// through every transform's Rewrite, in order; each stage may relabel refs
// and wrap the handler it received, so the handler of the last transform is
// the outermost wrapper and invocation unwinds in reverse order. Close hands
// the whole ledger to transforms that implement Closer, again in order, so
// they can merge, relabel or veto records using knowledge of every
// registration. The surviving final descriptors must target pairwise
// distinct outputs; they are then registered with the dispatch adapter.
//
// Registration is expected to happen from one goroutine. The proxy adds no
// locking on the invocation path.
package proxy
