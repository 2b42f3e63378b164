package engine

import (
	"strconv"
	"strings"
)

// ContentRange is a satisfiable, clamped byte interval plus the
// complete entity length, ready to format as a Content-Range header.
type ContentRange struct {
	Start, End, Complete int64
}

// IsRangeFresh implements §4.3 `is_range_fresh`.
func IsRangeFresh(hasRange bool, ifRange string, v Validator) bool {
	if !hasRange {
		return false
	}
	if ifRange == "" {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(ifRange), "W/") {
		return false
	}
	if strings.TrimSpace(ifRange) == v.ETag {
		return true
	}
	if since, ok := parseHTTPDate(ifRange); ok {
		return since.Unix() == v.LastModified
	}
	return false
}

// ParseRange parses a single Range header value of the form
// "bytes=a-b", "bytes=a-", or "bytes=-suffix". Multi-range requests
// and malformed values yield ok=false.
func ParseRange(header string) (start, end int64, hasStart, hasEnd bool, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false, false, false
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, false, false, false // multi-range: unsupported
	}
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, false, false, false
	}
	startStr, endStr := spec[:dash], spec[dash+1:]
	if startStr == "" && endStr == "" {
		return 0, 0, false, false, false
	}
	if startStr == "" {
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix < 0 {
			return 0, 0, false, false, false
		}
		return 0, suffix, false, true, true
	}
	s, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || s < 0 {
		return 0, 0, false, false, false
	}
	if endStr == "" {
		return s, 0, true, false, true
	}
	e, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || e < 0 {
		return 0, 0, false, false, false
	}
	return s, e, true, true, true
}

// IsSatisfiableRange implements §4.3 `is_satisfiable_range`. The
// header value is the raw `Range` header; completeLength is the full
// entity size. ok is false when the caller should fall back to
// serving the whole entity (spec §9: no 416 is emitted).
func IsSatisfiableRange(header string, completeLength int64) (cr ContentRange, ok bool) {
	start, end, hasStart, hasEnd, parsed := ParseRange(header)
	if !parsed || completeLength <= 0 {
		return ContentRange{}, false
	}
	switch {
	case hasStart && hasEnd: // bytes=start-end
		if start <= end && start < completeLength {
			if end >= completeLength {
				end = completeLength - 1
			}
			return ContentRange{Start: start, End: end, Complete: completeLength}, true
		}
	case hasStart && !hasEnd: // bytes=start-
		if start < completeLength {
			return ContentRange{Start: start, End: completeLength - 1, Complete: completeLength}, true
		}
	case !hasStart && hasEnd: // bytes=-suffix
		suffix := end
		if suffix > 0 {
			if suffix > completeLength {
				suffix = completeLength
			}
			return ContentRange{Start: completeLength - suffix, End: completeLength - 1, Complete: completeLength}, true
		}
	}
	return ContentRange{}, false
}
