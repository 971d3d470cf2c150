package storage

import "testing"

func TestLooksText(t *testing.T) {
	tests := []struct {
		name, mime string
		want       bool
	}{
		{"notes.md", "", true},
		{"DATA.JSON", "", true},
		{"scan.pdf", "application/pdf", false},
		{"blob", "text/plain; charset=utf-8", true},
		{"blob", "application/xml", true},
		{"photo.jpg", "image/jpeg", false},
	}
	for _, tt := range tests {
		if got := LooksText(tt.name, tt.mime); got != tt.want {
			t.Errorf("LooksText(%q, %q) = %v, want %v", tt.name, tt.mime, got, tt.want)
		}
	}
}

func TestDecodeText(t *testing.T) {
	if got := DecodeText([]byte("zażółć")); got != "zażółć" {
		t.Errorf("utf-8 decode = %q", got)
	}
	// 0xE9 is "é" in Latin-1 and invalid as a lone UTF-8 byte.
	if got := DecodeText([]byte{'c', 'a', 'f', 0xE9}); got != "café" {
		t.Errorf("latin-1 decode = %q, want %q", got, "café")
	}
}

func TestExtractText(t *testing.T) {
	if got := ExtractText("a.txt", "", []byte("  hello world \n"), 5); got != "hello" {
		t.Errorf("ExtractText = %q, want %q", got, "hello")
	}
	if got := ExtractText("a.png", "image/png", []byte("hello"), 0); got != "" {
		t.Errorf("binary ExtractText = %q, want empty", got)
	}
}

func TestExtractTextSniffsMIME(t *testing.T) {
	if got := ExtractText("upload", "", []byte("plain words"), 0); got != "plain words" {
		t.Errorf("sniffed text = %q, want %q", got, "plain words")
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := ExtractText("upload", "application/octet-stream", png, 0); got != "" {
		t.Errorf("sniffed binary = %q, want empty", got)
	}
}
