// Package pending holds the callers that are waiting for an asynchronous
// completion.
//
// A synchronous-style request (registration, course or wish creation)
// publishes a command to the broker and then has to wait for a worker to
// report back. The Registry bridges the two: the request registers a Sink
// under a fresh correlation id and blocks on it; the completion path later
// calls ResolveOnce with the same id.
//
// # Exactly-once delivery
//
// Every registered entry ends in exactly one of:
//   - ResolveOnce: a completion arrived and its Outcome is delivered
//   - expiry: the entry's timer fired first and a timeout Outcome is delivered
//   - Cancel: the caller went away; nothing is delivered
//   - Close: the registry shut down and a shutdown Outcome is delivered
//
// All four remove the entry from the map under a single mutex, and only the
// one that actually removed it touches the Sink. Removal is therefore the
// linearisation point; a late completion or a timer that lost the race finds
// nothing and returns false.
//
// Sinks are invoked outside the lock and must not block. ChanSink is the
// standard implementation: a one-slot channel the waiting handler selects on.
//
// # Usage
//
//	reg := pending.New(pending.WithLogger(logger))
//	sink := pending.NewChanSink()
//	if err := reg.Register(id, sink, pending.Registration, 0); err != nil { ... }
//	select {
//	case out := <-sink.C():
//	    // write out.Status / out.Body
//	case <-r.Context().Done():
//	    reg.Cancel(id)
//	}
package pending
