package utils

import "testing"

func TestChunkSlice(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5}

	chunks := ChunkSlice(ids, 2)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != 5 {
		t.Fatalf("last chunk: got %v", chunks[2])
	}

	// exact multiple leaves no short tail
	chunks = ChunkSlice([]int{1, 2, 3, 4}, 2)
	if len(chunks) != 2 || len(chunks[1]) != 2 {
		t.Fatalf("exact multiple: got %v", chunks)
	}

	// chunk larger than input returns a single chunk
	chunks = ChunkSlice(ids, 100)
	if len(chunks) != 1 || len(chunks[0]) != 5 {
		t.Fatalf("oversized chunk: got %v", chunks)
	}

	if ChunkSlice([]int{}, 2) != nil {
		t.Fatalf("empty input must produce no chunks")
	}
	if ChunkSlice(ids, 0) != nil {
		t.Fatalf("non-positive size must produce no chunks")
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("first occurrence order lost: got %v", got)
		}
	}
}

func TestDereferencePtr(t *testing.T) {
	n := 7
	if got := DereferencePtr(&n); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := DereferencePtr[int](nil); got != 0 {
		t.Fatalf("nil without default: got %d", got)
	}
	if got := DereferencePtr(nil, 42); got != 42 {
		t.Fatalf("nil with default: got %d", got)
	}
}

func TestExecTemplate(t *testing.T) {
	tmpl := `SELECT * FROM leads {{if .filtered}}WHERE stage = @stage{{end}} ORDER BY id`

	withClause, err := ExecTemplate(tmpl, map[string]interface{}{"filtered": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if withClause != "SELECT * FROM leads WHERE stage = @stage ORDER BY id" {
		t.Fatalf("got %q", withClause)
	}

	withoutClause, err := ExecTemplate(tmpl, map[string]interface{}{"filtered": false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if withoutClause != "SELECT * FROM leads  ORDER BY id" {
		t.Fatalf("got %q", withoutClause)
	}

	if _, err := ExecTemplate(`{{if}}`, nil); err == nil {
		t.Fatalf("malformed template must error")
	}
}
