package orchestra

// RunStream is an iterator over events emitted during a run.
// Usage:
//
//	stream := o.Run(ctx, "prompt")
//	for stream.Next() {
//	    event := stream.Current()
//	    // handle event
//	}
//	if err := stream.Err(); err != nil {
//	    // handle error
//	}
//
// The stream must be drained or its context cancelled, or the run's
// goroutine blocks.
type RunStream struct {
	events  chan Event
	current Event
	done    bool

	// err and result are written before events is closed.
	err    error
	result *Result
}

func newStream(size int) *RunStream {
	return &RunStream{events: make(chan Event, size)}
}

// Next advances to the next event. Returns false when the stream is exhausted.
func (s *RunStream) Next() bool {
	if s.done {
		return false
	}
	event, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	s.current = event
	return true
}

// Current returns the most recent event returned by Next.
func (s *RunStream) Current() Event {
	return s.current
}

// Err returns the error that stopped the run, if any. It is valid once Next
// has returned false.
func (s *RunStream) Err() error {
	return s.err
}

// Result returns the final result. It is valid once Next has returned false
// and is nil when Err is set.
func (s *RunStream) Result() *Result {
	return s.result
}

func errStream(err error) *RunStream {
	s := newStream(0)
	s.err = err
	close(s.events)
	return s
}
