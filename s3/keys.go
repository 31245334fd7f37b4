package s3

import "strings"

// joinKey joins key components with single separators, tolerating
// components that already carry a trailing slash. Both the move and the
// rename disposition build their destination keys through it so the two
// branches cannot drift apart.
func joinKey(comps ...string) string {
	sb := strings.Builder{}

	hasTrailingSlash := true
	for _, comp := range comps {
		if comp == "" {
			continue
		}
		if !hasTrailingSlash {
			sb.WriteString("/")
		}
		sb.WriteString(comp)
		hasTrailingSlash = strings.HasSuffix(comp, "/")
	}

	return sb.String()
}

// baseKey returns the leaf name of a key, the segment after the last
// separator.
func baseKey(key string) string {
	return key[strings.LastIndex(key, "/")+1:]
}
