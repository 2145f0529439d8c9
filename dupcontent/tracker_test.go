package dupcontent

import "testing"

func TestTracker_FirstPageIsNeverADuplicate(t *testing.T) {
	tr := New()
	_, _, ok := tr.Check("https://example.com/a", "some unique page content about widgets")
	if ok {
		t.Error("first tracked page reported as a duplicate")
	}
}

func TestTracker_IdenticalContentFlaggedAsDuplicate(t *testing.T) {
	tr := New()
	text := "the quick brown fox jumps over the lazy dog, a sentence repeated for padding, a sentence repeated for padding"

	tr.Check("https://example.com/a", text)
	dupOf, similarity, ok := tr.Check("https://example.com/b", text)

	if !ok {
		t.Fatal("identical content across two URLs not flagged as duplicate")
	}
	if dupOf != "https://example.com/a" {
		t.Errorf("dupOf = %q, want the first URL", dupOf)
	}
	if similarity < 90 {
		t.Errorf("similarity = %d, want a near-100 score for identical text", similarity)
	}
}

func TestTracker_UnrelatedContentIsNotADuplicate(t *testing.T) {
	tr := New()
	tr.Check("https://example.com/a", "widgets and gadgets for sale, free shipping on all orders over fifty dollars")
	_, _, ok := tr.Check("https://example.com/b", "our quarterly earnings report shows strong growth in the enterprise segment")

	if ok {
		t.Error("unrelated content across two URLs incorrectly flagged as duplicate")
	}
}

func TestTracker_TracksAcrossMultiplePriorPages(t *testing.T) {
	tr := New()
	tr.Check("https://example.com/a", "apples and oranges are both popular fruits sold at the market")
	tr.Check("https://example.com/b", "our quarterly earnings report shows strong growth in the enterprise segment")
	dupOf, _, ok := tr.Check("https://example.com/c", "apples and oranges are both popular fruits sold at the market")

	if !ok || dupOf != "https://example.com/a" {
		t.Errorf("expected duplicate of the first page, got dupOf=%q ok=%v", dupOf, ok)
	}
}
