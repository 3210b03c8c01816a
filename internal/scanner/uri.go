package scanner

import "strings"

const upperhex = "0123456789ABCDEF"

// FileURI is the identity key of a library file: "file://" followed by the
// absolute path with every byte except ASCII letters, digits and "/"
// percent-encoded.
func FileURI(absPath string) string {
	var b strings.Builder
	b.Grow(len("file://") + len(absPath)*3)
	b.WriteString("file://")
	for i := 0; i < len(absPath); i++ {
		c := absPath[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return c == '/' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}
