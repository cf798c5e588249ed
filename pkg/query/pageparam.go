package query

// NextPageFunc derives the token for the page after the most recently
// fetched one from that page's token and length. ok is false when no
// further page exists. Local pages never reach a NextPageFunc.
type NextPageFunc func(lastToken, lastLen, pageSize int) (next int, ok bool)

// NextPageIndex advances a page counter. Only a full page implies another.
func NextPageIndex(lastToken, lastLen, pageSize int) (int, bool) {
	if lastLen != pageSize {
		return 0, false
	}
	return lastToken + 1, true
}

// NextPageFromLength computes lastLen/pageSize + 1 with integer division,
// ignoring lastToken. A full page therefore always yields token 2, so
// pages after the second are never reached; it exists for callers that
// must match clients using that formula.
func NextPageFromLength(lastToken, lastLen, pageSize int) (int, bool) {
	if lastLen < pageSize {
		return 0, false
	}
	return lastLen/pageSize + 1, true
}
