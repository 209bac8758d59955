package scheduler

import (
	"strconv"

	"github.com/yairfalse/warden/pkg/resource"
)

// LookupTag returns the value of the first tag with the given key.
func LookupTag(tags []resource.Tag, key string) (string, bool) {
	for _, t := range tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// ParseHour parses a tag value made only of ASCII digits ("09" is 9).
// Anything else, including the empty string, is not an hour.
func ParseHour(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}
	h, err := strconv.Atoi(value)
	if err != nil {
		// overflow
		return 0, false
	}
	return h, true
}

// tagHour looks up key and parses it as an hour.
func tagHour(tags []resource.Tag, key string) (int, bool) {
	v, ok := LookupTag(tags, key)
	if !ok {
		return 0, false
	}
	return ParseHour(v)
}
