package binskema

import "errors"

// State is the state of a StreamDecoder.
type State int

const (
	// StateAwaiting: the decoder accepts more input. Need tells how many
	// bytes the pending field is missing.
	StateAwaiting State = iota
	// StateFailed: a record failed to decode; the session is over.
	StateFailed
	// StateEnded: End was called and every record was delivered.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateFailed:
		return "failed"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// StreamDecoder decodes a sequence of records from input delivered in chunks
// of any size. Decoding suspends at field boundaries when the input runs out
// and resumes on the next Write, so no field is ever half applied.
//
// A StreamDecoder is not safe for concurrent use.
type StreamDecoder struct {
	root  *node
	d     decoder
	state State
	err   error
}

// Write appends chunk to the residual input and returns the records it
// completed.
func (s *StreamDecoder) Write(chunk []byte) ([]Object, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.d.cur.buf = append(s.d.cur.buf, chunk...)
	return s.drain()
}

// End marks the end of input. Records bounded by the end of input complete
// here; a record still missing bytes fails with ErrTruncatedStream.
func (s *StreamDecoder) End() ([]Object, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	s.d.cur.eof = true
	out, err := s.drain()
	if err != nil {
		return out, err
	}
	s.state = StateEnded
	s.d.cur.buf = nil
	return out, nil
}

// State reports the session state.
func (s *StreamDecoder) State() State { return s.state }

// Err returns the error that failed the session, if any.
func (s *StreamDecoder) Err() error { return s.err }

// Need is the number of bytes the suspended field is still missing; 0 when
// no record is in progress or the field waits for the end of input.
func (s *StreamDecoder) Need() int {
	if s.state != StateAwaiting || len(s.d.stack) == 0 {
		return 0
	}
	return s.d.cur.need
}

// Buffered is the number of received bytes held for records not yet
// completed.
func (s *StreamDecoder) Buffered() int { return len(s.d.cur.buf) }

func (s *StreamDecoder) check() error {
	switch s.state {
	case StateFailed:
		return s.err
	case StateEnded:
		return ErrStreamClosed
	}
	return nil
}

func (s *StreamDecoder) drain() ([]Object, error) {
	var out []Object
	for {
		if len(s.d.stack) == 0 {
			if s.d.cur.avail() == 0 {
				return out, nil
			}
			_, f, err := s.d.open(s.root, nil)
			if err != nil {
				return out, s.fail(s.d.fail(err))
			}
			s.d.push(f)
		}
		v, err := s.d.run()
		if err == errSuspend {
			return out, nil
		}
		if err != nil {
			return out, s.fail(err)
		}
		if s.d.cur.off == 0 {
			e := decodeError(CodeNoProgress, nil)
			e.Offset = s.d.base
			return out, s.fail(e)
		}
		obj, _ := v.(Object)
		out = append(out, obj)
		s.compact()
	}
}

// compact drops the bytes of the completed record.
func (s *StreamDecoder) compact() {
	s.d.base += int64(s.d.cur.off)
	s.d.cur.buf = s.d.cur.buf[s.d.cur.off:]
	s.d.cur.off = 0
	if len(s.d.cur.buf) == 0 {
		s.d.cur.buf = nil
	}
}

func (s *StreamDecoder) fail(err error) error {
	if s.d.cur.eof && errors.Is(err, ErrUnexpectedEOF) {
		e, _ := AsError(err)
		t := newError(PhaseDecode, CodeTruncatedStream, nil, err)
		t.Path, t.Offset = e.Path, e.Offset
		err = t
	}
	s.state = StateFailed
	s.err = err
	s.d.stack = nil
	return err
}
