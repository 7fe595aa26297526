package station

// Merge reconciles a local and a cloud station list into one, deduplicated by
// normalized URL. Local stations are inserted first and therefore win every
// URL collision, keeping their own id and name. Cloud stations are appended
// only when their normalized URL is not already present.
//
// Merge is pure and idempotent on equal input: Merge(x, x) is a deduplicated
// x, Merge(x, nil) deduplicates x, Merge(nil, y) deduplicates y. Output order
// is local first-seen, then cloud first-seen.
func Merge(local, cloud []Station) []Station {
	seen := make(map[string]struct{}, len(local)+len(cloud))
	merged := make([]Station, 0, len(local)+len(cloud))

	for _, s := range local {
		key := NormalizeURL(s.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, s)
	}
	for _, s := range cloud {
		key := NormalizeURL(s.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, s)
	}

	return merged
}
