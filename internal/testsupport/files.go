package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

var (
	flacMagic = []byte("fLaC\x00\x00\x00\x22") // magic + STREAMINFO block header
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	writeBytes(t, path, buf)
}

// WriteAudioFixture writes a file whose content sniffs as audio/flac.
func WriteAudioFixture(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, append(append([]byte{}, flacMagic...), make([]byte, 64)...))
}

// WriteImageFixture writes a file whose content sniffs as image/png.
func WriteImageFixture(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, append(append([]byte{}, pngMagic...), make([]byte, 64)...))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
