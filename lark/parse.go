package lark

import (
	"strconv"
	"time"
)

// parseInt64 safely parses a numeric string field, returning 0 on failure
func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseUnixString converts a unix-seconds string to a time value
func parseUnixString(s string) time.Time {
	v := parseInt64(s)
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}
