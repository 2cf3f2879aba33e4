// Package utils provides small helpers shared by the HTTP layer. They carry
// no domain knowledge.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a number. Surrounding whitespace is ignored.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage turns raw page/page_size query values into a usable window.
// page is at least 1; size falls back to def when missing or non-positive and
// is capped at max.
func ClampPage(pageStr, sizeStr string, def, max int) (page, size int) {
	page = AtoiDefault(pageStr, 1)
	if page < 1 {
		page = 1
	}
	size = AtoiDefault(sizeStr, def)
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size
}

// TotalPages is ceil(total/size), or 0 for an empty result.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
