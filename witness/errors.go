package witness

import "errors"

// ErrStackUnderflow is the only recoverable failure of trace
// generation: a stack-relative access referenced a slot below the
// bottom of the stack. Handlers check for it before mutating any
// state, so the registers and the trace sink are untouched when it is
// returned. Every other malformed condition at this layer is an
// environment-invariant violation and panics.
var ErrStackUnderflow = errors.New("stack underflow")
