package utils

import "strings"

// SplitList splits a comma separated value, trimming blanks and dropping empty entries.
func SplitList(value string) []string {
	items := make([]string, 0)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return items
}
