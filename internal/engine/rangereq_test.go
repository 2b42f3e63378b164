package engine

import "testing"

func TestIsSatisfiableRange_StartEnd(t *testing.T) {
	cr, ok := IsSatisfiableRange("bytes=1-4", 8)
	if !ok {
		t.Fatal("expected satisfiable range")
	}
	if cr != (ContentRange{Start: 1, End: 4, Complete: 8}) {
		t.Fatalf("unexpected range: %+v", cr)
	}
}

func TestIsSatisfiableRange_EndClamped(t *testing.T) {
	cr, ok := IsSatisfiableRange("bytes=2-100", 8)
	if !ok {
		t.Fatal("expected satisfiable range")
	}
	if cr.End != 7 {
		t.Fatalf("expected end clamped to complete-1=7, got %d", cr.End)
	}
}

func TestIsSatisfiableRange_OpenEnded(t *testing.T) {
	cr, ok := IsSatisfiableRange("bytes=5-", 8)
	if !ok || cr.Start != 5 || cr.End != 7 {
		t.Fatalf("unexpected result: %+v ok=%v", cr, ok)
	}
}

func TestIsSatisfiableRange_Suffix(t *testing.T) {
	cr, ok := IsSatisfiableRange("bytes=-3", 8)
	if !ok || cr.Start != 5 || cr.End != 7 {
		t.Fatalf("unexpected result: %+v ok=%v", cr, ok)
	}
}

func TestIsSatisfiableRange_Unsatisfiable(t *testing.T) {
	// §4.3: unsatisfiable ranges degrade to "None", not an error — the
	// caller then serves the whole entity rather than emitting 416
	// (spec §9 open question, preserved as-is here).
	if _, ok := IsSatisfiableRange("bytes=100-200", 8); ok {
		t.Fatal("expected unsatisfiable range to report ok=false")
	}
	if _, ok := IsSatisfiableRange("bytes=-0", 8); ok {
		t.Fatal("zero-length suffix is unsatisfiable")
	}
}

func TestIsSatisfiableRange_MultiRangeRejected(t *testing.T) {
	if _, ok := IsSatisfiableRange("bytes=0-1,3-4", 8); ok {
		t.Fatal("multi-range requests must be rejected (None)")
	}
}

func TestIsRangeFresh(t *testing.T) {
	v := Validator{ETag: `"100-8"`, LastModified: 100}

	if !IsRangeFresh(true, "", v) {
		t.Fatal("no If-Range supplied should be fresh")
	}
	if IsRangeFresh(false, "", v) {
		t.Fatal("no Range header means range semantics do not apply")
	}
	if !IsRangeFresh(true, `"100-8"`, v) {
		t.Fatal("matching strong ETag in If-Range should be fresh")
	}
	if IsRangeFresh(true, `W/"100-8"`, v) {
		t.Fatal("a weak tag in If-Range is never fresh")
	}
	if !IsRangeFresh(true, "Thu, 01 Jan 1970 00:01:40 GMT", v) {
		t.Fatal("exact Last-Modified match in If-Range should be fresh")
	}
}
