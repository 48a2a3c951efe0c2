package listing

import (
	"strings"
	"testing"
)

func TestJSONParserAssignsIndices(t *testing.T) {
	body := `[{"name":"a.epub","size":"1.2 MB"},{"name":"b.pdf","size":"340 KB"}]`

	books, err := JSONParser{}.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len(books) = %d, want 2", len(books))
	}
	if books[0].Index != 1 || books[0].Name != "a.epub" || books[0].Size != "1.2 MB" {
		t.Errorf("books[0] = %+v", books[0])
	}
	if books[1].Index != 2 || books[1].Name != "b.pdf" {
		t.Errorf("books[1] = %+v", books[1])
	}
}

func TestJSONParserEmptyListing(t *testing.T) {
	books, err := JSONParser{}.Parse(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if books == nil {
		t.Fatal("books is nil, want empty slice")
	}
	if len(books) != 0 {
		t.Fatalf("len(books) = %d, want 0", len(books))
	}
}

func TestJSONParserKeepsDuplicateNames(t *testing.T) {
	body := `[{"name":"dup.epub","size":"1 KB"},{"name":"dup.epub","size":"2 KB"}]`

	books, err := JSONParser{}.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len(books) = %d, want 2", len(books))
	}
	if books[0].Index != 1 || books[1].Index != 2 {
		t.Errorf("indices = %d, %d; want 1, 2", books[0].Index, books[1].Index)
	}
}

func TestJSONParserRejectsMalformedBody(t *testing.T) {
	for _, body := range []string{`not json`, `{"name":"x"}`, `[{"size":"1 KB"}]`} {
		if _, err := (JSONParser{}).Parse(strings.NewReader(body)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", body)
		}
	}
}
