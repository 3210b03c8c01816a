package mediatype_test

import (
	"path/filepath"
	"testing"

	"tonearm/internal/media/mediatype"
	"tonearm/internal/testsupport"
)

func TestClassify(t *testing.T) {
	cases := map[string]mediatype.Type{
		"audio/flac":                mediatype.Audio,
		"audio/mpeg":                mediatype.Audio,
		"application/ogg":           mediatype.Audio,
		"image/jpeg":                mediatype.Image,
		"text/plain; charset=utf-8": mediatype.Unknown,
		"application/octet-stream":  mediatype.Unknown,
		"":                          mediatype.Unknown,
	}
	for mime, want := range cases {
		if got := mediatype.Classify(mime); got != want {
			t.Fatalf("Classify(%q) = %s, want %s", mime, got, want)
		}
	}
}

func TestDetectSniffsContent(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "track.bin")
	image := filepath.Join(dir, "cover.dat")
	testsupport.WriteAudioFixture(t, audio)
	testsupport.WriteImageFixture(t, image)

	mime, kind, err := mediatype.Detect(audio)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if kind != mediatype.Audio || mime != "audio/flac" {
		t.Fatalf("expected audio/flac, got %s (%s)", mime, kind)
	}
	if _, kind, _ := mediatype.Detect(image); kind != mediatype.Image {
		t.Fatalf("expected image, got %s", kind)
	}
	if _, _, err := mediatype.Detect(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
