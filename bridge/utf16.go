package bridge

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeUTF16LE decodes engine output, dropping the terminator.
func decodeUTF16LE(b []byte) string {
	out, _, err := transform.Bytes(utf16le.NewDecoder(), b)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\x00")
}

func decodeUnits(units []uint16) string {
	b := make([]byte, 2*len(units))
	for i, u := range units {
		b[2*i] = byte(u)
		b[2*i+1] = byte(u >> 8)
	}
	return decodeUTF16LE(b)
}
