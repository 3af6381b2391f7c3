package core

import (
	"bytes"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cleanInput prepares an uploaded document for decoding. Editors on Windows
// often prepend a UTF-8 BOM, which the decoders reject, and hand-edited
// sheets may carry stray Latin-1 bytes. Invalid bytes become '?'.
func cleanInput(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("?"))
	}
	return data
}
