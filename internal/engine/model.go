// Package engine implements the per-request protocol engine: path
// resolution, conditional and range evaluation, content-encoding
// negotiation, body senders, and the request pipeline that composes
// them into an HTTP response.
package engine

import "sort"

// PathType classifies a filesystem entry for directory-listing sort
// precedence. Order matters: Dir < SymlinkDir < File < SymlinkFile.
type PathType int

const (
	PathDir PathType = iota
	PathSymlinkDir
	PathFile
	PathSymlinkFile
)

// Validator is the (ETag, Last-Modified) pair used by conditional and
// range evaluators.
type Validator struct {
	ETag         string
	LastModified int64 // unix seconds, truncated
}

// ListingItem is one row of a directory listing.
type ListingItem struct {
	PathType PathType
	Name     string
	Href     string
}

// ListingItems sorts stably by (PathType, Name, Href) — directories first.
type ListingItems []ListingItem

func (l ListingItems) Len() int      { return len(l) }
func (l ListingItems) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l ListingItems) Less(i, j int) bool {
	if l[i].PathType != l[j].PathType {
		return l[i].PathType < l[j].PathType
	}
	if l[i].Name != l[j].Name {
		return l[i].Name < l[j].Name
	}
	return l[i].Href < l[j].Href
}

// SortListing sorts items in place using the total order from §3.
func SortListing(items ListingItems) { sort.Stable(items) }

// Breadcrumb is one path segment from root to the current directory.
type Breadcrumb struct {
	Name string
	Href string
}

// Action is the coarse per-request branch.
type Action int

const (
	ActionListDir Action = iota
	ActionDownloadFile
	ActionDownloadZip
)

// Encoding is a content-coding token with a total order used as the
// quality-value tie-breaker: Identity < Deflate < Gzip < Brotli.
type Encoding int

const (
	EncodingIdentity Encoding = iota
	EncodingDeflate
	EncodingGzip
	EncodingBrotli
)

// String returns the wire token for the encoding ("identity" for
// Identity, which is never announced via Content-Encoding).
func (e Encoding) String() string {
	switch e {
	case EncodingDeflate:
		return "deflate"
	case EncodingGzip:
		return "gzip"
	case EncodingBrotli:
		return "br"
	default:
		return "identity"
	}
}

// QualityValue is a parsed Accept-Encoding entry: a token paired with
// an integer weight in [0, 1000].
type QualityValue struct {
	Token  string
	Weight int
}
