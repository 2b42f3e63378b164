package engine

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// ParseAcceptEncoding parses each comma-separated entry of an
// Accept-Encoding header into a QualityValue, per §4.4.
func ParseAcceptEncoding(header string) []QualityValue {
	if header == "" {
		return nil
	}
	entries := strings.Split(header, ",")
	out := make([]QualityValue, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.SplitN(e, ";", 2)
		token := strings.ToLower(strings.TrimSpace(parts[0]))
		weight := 1000
		if len(parts) == 2 {
			weight = parseWeight(parts[1])
		}
		out = append(out, QualityValue{Token: token, Weight: weight})
	}
	return out
}

// parseWeight parses the "q=<f>" parameter, scaling [0,1] to an
// integer 0..1000. An unparseable or out-of-range weight is
// unacceptable (0).
func parseWeight(param string) int {
	param = strings.TrimSpace(param)
	const prefix = "q="
	if !strings.HasPrefix(strings.ToLower(param), prefix) {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(param[len(prefix):]), 64)
	if err != nil || f < 0 {
		return 0
	}
	w := int(f*1000 + 0.5)
	if w > 1000 {
		return 0
	}
	return w
}

// tokenEncoding maps a wire token to its Encoding enum value, mapping
// unknown tokens to Identity.
func tokenEncoding(token string) Encoding {
	switch token {
	case "br":
		return EncodingBrotli
	case "gzip":
		return EncodingGzip
	case "deflate":
		return EncodingDeflate
	case "identity":
		return EncodingIdentity
	default:
		return EncodingIdentity
	}
}

// NegotiateEncoding picks the winning encoding from an Accept-Encoding
// header per §4.4: sort ascending by (weight, Encoding), last element
// wins. Missing header or no acceptable encoding returns Identity.
func NegotiateEncoding(header string) Encoding {
	qvs := ParseAcceptEncoding(header)
	if len(qvs) == 0 {
		return EncodingIdentity
	}
	type ranked struct {
		weight int
		enc    Encoding
	}
	candidates := make([]ranked, 0, len(qvs))
	for _, qv := range qvs {
		if qv.Weight <= 0 {
			continue
		}
		candidates = append(candidates, ranked{weight: qv.Weight, enc: tokenEncoding(qv.Token)})
	}
	if len(candidates) == 0 {
		return EncodingIdentity
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight < candidates[j].weight
		}
		return candidates[i].enc < candidates[j].enc
	})
	return candidates[len(candidates)-1].enc
}

// IsCompressedFormat reports whether mime is a format re-compression
// is useless or harmful for: video/*, audio/*, or any subtype of
// gif/jpeg/png.
func IsCompressedFormat(mimeType string) bool {
	mimeType = strings.ToLower(mimeType)
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.TrimSpace(base)
	typ, subtype, found := strings.Cut(base, "/")
	if !found {
		return false
	}
	switch typ {
	case "video", "audio":
		return true
	}
	switch subtype {
	case "gif", "jpeg", "png":
		return true
	}
	return false
}

// ShouldCompress implements §4.4 `should_compress`.
func ShouldCompress(status int, mimeType string, compressEnabled bool) bool {
	return compressEnabled && status != 206 && !IsCompressedFormat(mimeType)
}

// NewEncoder wraps w with a streaming encoder for enc. Identity
// wraps w in a pass-through whose Close does nothing. The caller MUST
// Close() a non-identity encoder to flush trailing bytes.
func NewEncoder(w io.Writer, enc Encoding) io.WriteCloser {
	switch enc {
	case EncodingGzip:
		return gzip.NewWriter(w)
	case EncodingDeflate:
		fw, _ := flate.NewWriter(w, flate.DefaultCompression)
		return fw
	case EncodingBrotli:
		return brotli.NewWriter(w)
	default:
		return nopWriteCloser{w}
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
