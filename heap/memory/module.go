package memory

// memoryModule returns the binary of a Wasm module that defines nothing but an
// exported memory named "memory" with the given limits.
func memoryModule(minPages, maxPages uint32) []byte {
	limits := []byte{0x01}
	limits = appendULEB128(limits, minPages)
	limits = appendULEB128(limits, maxPages)

	memSection := append([]byte{0x01}, limits...) // one memory

	name := "memory"
	exportSection := []byte{0x01, byte(len(name))} // one export
	exportSection = append(exportSection, name...)
	exportSection = append(exportSection, 0x02, 0x00) // kind memory, index 0

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	bin = appendSection(bin, 0x05, memSection)
	bin = appendSection(bin, 0x07, exportSection)

	return bin
}

func appendSection(bin []byte, id byte, payload []byte) []byte {
	bin = append(bin, id)
	bin = appendULEB128(bin, uint32(len(payload)))

	return append(bin, payload...)
}

func appendULEB128(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7

		if v != 0 {
			b = append(b, c|0x80)
			continue
		}

		return append(b, c)
	}
}
