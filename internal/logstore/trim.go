package logstore

// Policy selects which end of a RewriteStore survives trimming.
type Policy int

const (
	// KeepNewest prepends records and keeps the first N lines (newest first).
	KeepNewest Policy = iota
	// KeepLast appends records and keeps the last N lines (oldest first).
	KeepLast
)

// String returns the policy name used in logs and metrics.
func (p Policy) String() string {
	switch p {
	case KeepNewest:
		return "keep-newest"
	case KeepLast:
		return "keep-last"
	default:
		return "unknown"
	}
}

// TrimNewest returns the prefix of data holding at most n lines.
func TrimNewest(data []byte, n int) []byte {
	if n <= 0 {
		return nil
	}

	seen := 0

	for i, b := range data {
		if b != '\n' {
			continue
		}

		seen++
		if seen == n {
			return data[:i+1]
		}
	}

	return data
}

// TrimLast returns the suffix of data holding at most n lines.
func TrimLast(data []byte, n int) []byte {
	if n <= 0 {
		return nil
	}

	end := len(data)
	if end > 0 && data[end-1] == '\n' {
		end--
	}

	seen := 0

	for i := end - 1; i >= 0; i-- {
		if data[i] != '\n' {
			continue
		}

		seen++
		if seen == n {
			return data[i+1:]
		}
	}

	return data
}
