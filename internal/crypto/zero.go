package crypto

// Zero overwrites every given byte slice with zeros.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
