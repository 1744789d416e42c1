package printer

import "strings"

var (
	escInit = []byte{0x1b, 0x40}
	// feed 4 lines then partial cut
	escFeedCut = []byte{0x1b, 0x64, 0x04, 0x1d, 0x56, 0x01}
)

// Encode frames a text slip for an ESC/POS printer. Line endings become LF;
// the printer's code page handles plain ASCII, other runes become '?'.
func Encode(text string) []byte {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	out := make([]byte, 0, len(escInit)+len(text)+len(escFeedCut))
	out = append(out, escInit...)
	for _, r := range text {
		switch {
		case r == '\n' || (r >= 0x20 && r < 0x7f):
			out = append(out, byte(r))
		case r == '▀' || r == '▄' || r == '█':
			out = append(out, blockByte[r])
		default:
			out = append(out, '?')
		}
	}
	return append(out, escFeedCut...)
}

// CP437 half and full blocks used by the QR rendering.
var blockByte = map[rune]byte{
	'▀': 0xdf,
	'▄': 0xdc,
	'█': 0xdb,
}
