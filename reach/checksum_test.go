package reach

import (
	"testing"
	"testing/quick"
)

func TestInternetChecksumEmpty(t *testing.T) {
	if got := internetChecksum(nil); got != 0xFFFF {
		t.Fatalf("checksum of empty data = %#x, want 0xFFFF (all-ones complement of zero)", got)
	}
}

func TestInternetChecksumOddLength(t *testing.T) {
	a := internetChecksum([]byte{0x01})
	b := internetChecksum([]byte{0x01, 0x00})
	if a != b {
		t.Fatalf("odd-length input should pad with a zero low byte: %#x != %#x", a, b)
	}
}

// TestInternetChecksumDetectsSingleBitFlip exercises the property the
// file-transfer engine actually relies on: any single-bit corruption of
// the data changes the checksum.
func TestInternetChecksumDetectsSingleBitFlip(t *testing.T) {
	f := func(data []byte, bitPos uint8) bool {
		if len(data) == 0 {
			return true
		}
		want := internetChecksum(data)
		corrupted := append([]byte(nil), data...)
		idx := int(bitPos) % len(corrupted)
		bit := byte(1) << (bitPos % 8)
		corrupted[idx] ^= bit
		got := internetChecksum(corrupted)
		return got != want
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Fatal(err)
	}
}
