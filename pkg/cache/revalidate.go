package cache

import "net/http"

// CanRevalidate reports whether entry carries a validator the server can
// check (an ETag or a Last-Modified date).
func CanRevalidate(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// SetConditionalHeaders adds If-None-Match, or If-Modified-Since when no
// ETag is known.
func SetConditionalHeaders(req *http.Request, entry *Entry) {
	if req == nil || entry == nil {
		return
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}

	switch {
	case entry.ETag != "":
		req.Header.Set("If-None-Match", entry.ETag)
	case !entry.LastModified.IsZero():
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
