package models

import "testing"

func TestResolveCategoryLabelJoinObjectWins(t *testing.T) {
	joined := &Category{
		ID:     4,
		Name:   "Citizenship",
		Parent: &MainCategory{ID: 1, Name: "Immigration"},
	}
	got := ResolveCategoryLabel("stale text", intPtr(4), joined, nil)
	if got != "Citizenship (Immigration)" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveCategoryLabelNameMapCaseInsensitive(t *testing.T) {
	byName := map[string]CategoryInfo{
		"estate planning": {Id: 7, Name: "Estate Planning", MainName: "Wills & Estates"},
	}
	got := ResolveCategoryLabel("Estate Planning", intPtr(7), nil, byName)
	if got != "Estate Planning (Wills & Estates)" {
		t.Fatalf("got %q", got)
	}

	// trims before matching
	got = ResolveCategoryLabel("  estate planning  ", nil, nil, byName)
	if got != "Estate Planning (Wills & Estates)" {
		t.Fatalf("trimmed match: got %q", got)
	}
}

func TestResolveCategoryLabelParenSuffixParsing(t *testing.T) {
	got := ResolveCategoryLabel("Citizenship (Immigration)", nil, nil, nil)
	if got != "Citizenship (Immigration)" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveCategoryLabelLastResorts(t *testing.T) {
	if got := ResolveCategoryLabel("", intPtr(12), nil, nil); got != "Category 12" {
		t.Fatalf("id fallback: got %q", got)
	}
	if got := ResolveCategoryLabel("", nil, nil, nil); got != "Uncategorized" {
		t.Fatalf("empty fallback: got %q", got)
	}
	// unmatched free text passes through as-is
	if got := ResolveCategoryLabel("Ad-hoc matter", nil, nil, nil); got != "Ad-hoc matter" {
		t.Fatalf("free text: got %q", got)
	}
}

func TestResolveCategoryLabelMissingMainKeepsSub(t *testing.T) {
	joined := &Category{ID: 9, Name: "Notary"}
	if got := ResolveCategoryLabel("", intPtr(9), joined, nil); got != "Notary" {
		t.Fatalf("missing main must not suppress sub: got %q", got)
	}

	byName := map[string]CategoryInfo{"notary": {Id: 9, Name: "Notary"}}
	if got := ResolveCategoryLabel("notary", nil, nil, byName); got != "Notary" {
		t.Fatalf("name map without main: got %q", got)
	}
}

func TestBuildCategoryNameMap(t *testing.T) {
	categories := []*Category{
		{ID: 1, Name: " Estate Planning ", ParentId: intPtr(2)},
		{ID: 3, Name: "Notary"},
	}
	byName := BuildCategoryNameMap(categories, map[int]string{2: "Wills & Estates"})

	info, ok := byName["estate planning"]
	if !ok {
		t.Fatalf("expected lower-trimmed key")
	}
	if info.MainName != "Wills & Estates" {
		t.Fatalf("main name: got %q", info.MainName)
	}
	if byName["notary"].MainName != "" {
		t.Fatalf("parentless category must have empty main")
	}
}
