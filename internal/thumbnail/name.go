package thumbnail

// nameAlphabet avoids characters that are easily confused when read aloud
// or handwritten (b/6, g/9, i/l/1, o/0, s/5).
const nameAlphabet = "acdefhjkmnpqrtuvwxyz23478"

// EncodeName renders n in base 25 over nameAlphabet. Thumbnails are named
// EncodeName(i+1) for the i-th source image, so names start at "c".
func EncodeName(n int) string {
	base := len(nameAlphabet)
	if n <= 0 {
		return nameAlphabet[:1]
	}
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = nameAlphabet[n%base]
		n /= base
	}
	return string(buf[i:])
}
