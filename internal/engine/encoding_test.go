package engine

import "testing"

func TestNegotiateEncoding_S6(t *testing.T) {
	// S6 from spec §8: gzip wins over br;q=0.5 since gzip has implicit q=1.
	got := NegotiateEncoding("br;q=0.5, gzip, deflate;q=0.8")
	if got != EncodingGzip {
		t.Fatalf("expected gzip to win, got %v", got)
	}
}

func TestNegotiateEncoding_TieBreakOrder(t *testing.T) {
	// Equal weights: Identity < Deflate < Gzip < Brotli, last wins.
	got := NegotiateEncoding("gzip;q=0.5, br;q=0.5")
	if got != EncodingBrotli {
		t.Fatalf("expected brotli to win tie-break, got %v", got)
	}
}

func TestNegotiateEncoding_NoHeader(t *testing.T) {
	if got := NegotiateEncoding(""); got != EncodingIdentity {
		t.Fatalf("expected identity with no header, got %v", got)
	}
}

func TestNegotiateEncoding_UnacceptableWeight(t *testing.T) {
	if got := NegotiateEncoding("gzip;q=0"); got != EncodingIdentity {
		t.Fatalf("q=0 means unacceptable, expected identity fallback, got %v", got)
	}
	if got := NegotiateEncoding("gzip;q=2"); got != EncodingIdentity {
		t.Fatalf("weight > 1 defaults to 0 (unacceptable), got %v", got)
	}
}

func TestIsCompressedFormat(t *testing.T) {
	cases := map[string]bool{
		"image/png":        true,
		"image/jpeg":       true,
		"image/gif":        true,
		"video/mp4":        true,
		"audio/mpeg":       true,
		"text/plain":       false,
		"image/svg+xml":    false,
		"application/json": false,
	}
	for mime, want := range cases {
		if got := IsCompressedFormat(mime); got != want {
			t.Errorf("IsCompressedFormat(%q) = %v, want %v", mime, got, want)
		}
	}
}

func TestShouldCompress(t *testing.T) {
	if ShouldCompress(206, "text/plain", true) {
		t.Fatal("invariant 7: compression must never apply to 206 responses")
	}
	if ShouldCompress(200, "image/png", true) {
		t.Fatal("invariant 7: compression must never apply to compressed-format MIME types")
	}
	if !ShouldCompress(200, "text/plain", true) {
		t.Fatal("expected compression to be eligible")
	}
	if ShouldCompress(200, "text/plain", false) {
		t.Fatal("compression disabled in config must suppress compression")
	}
}
