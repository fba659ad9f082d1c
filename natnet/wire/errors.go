package wire

import "errors"

// ErrShortRead is wrapped by any read that would run past the end of the
// buffer, or that expects a terminator that never arrives.
var ErrShortRead = errors.New("natnet/wire: short read")

// ErrDecode is wrapped by any read whose bytes cannot be interpreted as the
// requested type (currently: invalid UTF-8 in a string field).
var ErrDecode = errors.New("natnet/wire: decode error")
