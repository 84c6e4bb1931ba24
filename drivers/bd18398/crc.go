package bd18398

// CRC8 computes the frame checksum: polynomial x^8+x^5+x^4+1 (0x31),
// initial value 0, MSB first, no final XOR.
func CRC8(p []byte) uint8 {
	var crc uint8
	for _, b := range p {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
