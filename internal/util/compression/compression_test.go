package compression

import (
	"bytes"
	"testing"
)

func TestCompressors(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"kind":"tip","tip":{"title":"Melhor café da região"}}`), 20)

	for _, name := range []string{Zstd, Gzip, None} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			if err != nil {
				t.Fatalf("ByName(%q): %v", name, err)
			}

			packed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if name != None && len(packed) >= len(payload) {
				t.Errorf("Expected %s to shrink repetitive input (%d >= %d)", name, len(packed), len(payload))
			}

			unpacked, err := c.Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(unpacked, payload) {
				t.Error("Round trip changed the payload")
			}
		})
	}
}

func TestDecompressGarbage(t *testing.T) {
	garbage := []byte("definitely not compressed")

	if _, err := (ZstdCompressor{}).Decompress(garbage); err == nil {
		t.Error("Expected zstd to reject garbage")
	}
	if _, err := (GzipCompressor{}).Decompress(garbage); err == nil {
		t.Error("Expected gzip to reject garbage")
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("lz4"); err == nil {
		t.Error("Expected error for unknown compression")
	}
	if c, err := ByName(""); err != nil || c == nil {
		t.Error("Expected empty name to select the default codec")
	}
}
