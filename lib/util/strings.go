package util

import (
	"strings"
)

func ChooseStr(cond bool, trueStr, falseStr string) string {
	if cond {
		return trueStr
	}
	return falseStr
}

// returns the first non-empty string, or the empty string
func CoalesceStr(strs ...string) string {
	for _, s := range strs {
		if len(s) > 0 {
			return s
		}
	}
	return ""
}

// SplitQualified splits "schema.name" on the first dot. A bare name gets
// the default schema.
func SplitQualified(name, defaultSchema string) (string, string) {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}
