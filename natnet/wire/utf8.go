package wire

import "unicode/utf8"

func isValidUTF8String(b []byte) bool {
	return utf8.Valid(b)
}
