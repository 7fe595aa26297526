package station

import "testing"

// TestMerge_NoDuplicateURLs verifies that merge output never contains two
// stations with equal normalized URL.
func TestMerge_NoDuplicateURLs(t *testing.T) {
	local := []Station{
		{ID: "1", Name: "A", URL: "http://x.fm"},
		{ID: "2", Name: "B", URL: "http://y.fm"},
	}
	cloud := []Station{
		{ID: "3", Name: "A2", URL: "HTTP://X.FM"},
		{ID: "4", Name: "C", URL: "http://z.fm"},
	}

	merged := Merge(local, cloud)

	seen := make(map[string]bool)
	for _, s := range merged {
		key := NormalizeURL(s.URL)
		if seen[key] {
			t.Errorf("duplicate normalized URL in merge output: %s", key)
		}
		seen[key] = true
	}
	if len(merged) != 3 {
		t.Errorf("expected 3 merged stations, got %d", len(merged))
	}
}

// TestMerge_URLUnion verifies that the merged normalized URL set equals the
// union of both inputs' normalized URL sets.
func TestMerge_URLUnion(t *testing.T) {
	local := []Station{
		{ID: "1", Name: "A", URL: "http://x.fm"},
	}
	cloud := []Station{
		{ID: "2", Name: "B", URL: "http://y.fm"},
		{ID: "3", Name: "C", URL: " http://z.fm"},
	}

	merged := Merge(local, cloud)

	want := map[string]bool{"http://x.fm": true, "http://y.fm": true, "http://z.fm": true}
	got := make(map[string]bool)
	for _, s := range merged {
		got[NormalizeURL(s.URL)] = true
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d distinct URLs, got %d", len(want), len(got))
	}
	for key := range want {
		if !got[key] {
			t.Errorf("missing URL %s in merge output", key)
		}
	}
}

// TestMerge_LocalWinsCollision verifies that on a normalized URL collision
// the local station survives with its own id and name.
func TestMerge_LocalWinsCollision(t *testing.T) {
	local := []Station{{ID: "1", Name: "A", URL: "HTTP://X.FM/ "}}
	cloud := []Station{{ID: "2", Name: "A2", URL: "http://x.fm/"}}

	merged := Merge(local, cloud)

	if len(merged) != 1 {
		t.Fatalf("expected 1 merged station, got %d", len(merged))
	}
	if merged[0].ID != "1" || merged[0].Name != "A" {
		t.Errorf("expected local station to win, got %+v", merged[0])
	}
}

// TestMerge_Idempotent verifies merge identities: Merge(x, x) deduplicates x,
// and merging with an empty side deduplicates the other side.
func TestMerge_Idempotent(t *testing.T) {
	x := []Station{
		{ID: "1", Name: "A", URL: "http://x.fm"},
		{ID: "2", Name: "A dup", URL: "http://x.fm"},
		{ID: "3", Name: "B", URL: "http://y.fm"},
	}

	for _, merged := range [][]Station{Merge(x, x), Merge(x, nil), Merge(nil, x)} {
		if len(merged) != 2 {
			t.Errorf("expected 2 deduplicated stations, got %d", len(merged))
		}
	}

	// Local-first order: the first occurrence of each URL survives.
	merged := Merge(x, x)
	if merged[0].ID != "1" || merged[1].ID != "3" {
		t.Errorf("unexpected merge order: %+v", merged)
	}
}

// TestMerge_EmptyBothSides verifies the degenerate case.
func TestMerge_EmptyBothSides(t *testing.T) {
	if merged := Merge(nil, nil); len(merged) != 0 {
		t.Errorf("expected empty merge, got %+v", merged)
	}
}
