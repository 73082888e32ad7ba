package viewer

type AttemptKind uint8

const (
	// NoFrame: the camera produced nothing usable this iteration.
	NoFrame AttemptKind = iota
	// NoCode: the frame decoded cleanly but held no symbol.
	NoCode
	// TransientFailure: the decoder failed on this frame.
	TransientFailure
	// Decoded: a payload was found.
	Decoded
)

func (k AttemptKind) String() string {
	switch k {
	case NoFrame:
		return "no-frame"
	case NoCode:
		return "no-code"
	case TransientFailure:
		return "transient-failure"
	case Decoded:
		return "decoded"
	}
	return "unknown"
}

// Attempt is the outcome of one loop iteration.
type Attempt struct {
	Kind AttemptKind
	// Frame is the 1-based iteration number, 0 for standalone Scan calls.
	Frame   int
	Payload Payload
	Cause   error
}
