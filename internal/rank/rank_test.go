package rank

import (
	"testing"

	"intelpipeline/internal/domain"
)

func TestRankStable(t *testing.T) {
	t.Parallel()

	in := []domain.Article{
		{Title: "A", RelevanceScore: 80},
		{Title: "B", RelevanceScore: 90},
		{Title: "C", RelevanceScore: 80},
	}

	got := Rank(in)

	want := []string{"B", "A", "C"}
	for i, title := range want {
		if got[i].Title != title {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Title, title)
		}
	}

	if in[0].Title != "A" {
		t.Fatal("Rank mutated its input")
	}
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()

	if got := Rank(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %d articles", len(got))
	}
}

func TestFilterRelevantORSemantics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		article domain.Article
		want    bool
	}{
		{"score passes", domain.Article{RelevanceScore: 95, Jurisdiction: "Elsewhere"}, true},
		{"score at threshold", domain.Article{RelevanceScore: 80}, true},
		{"jurisdiction bypasses score", domain.Article{RelevanceScore: 50, Jurisdiction: "Local-Specific"}, true},
		{"category bypasses score", domain.Article{RelevanceScore: 10, Category: "Heavy Construction"}, true},
		{"case-insensitive keyword", domain.Article{RelevanceScore: 10, Jurisdiction: "local-specific zone"}, true},
		{"nothing matches", domain.Article{RelevanceScore: 79, Jurisdiction: "Elsewhere", Category: "Finance"}, false},
	}

	for _, tc := range cases {
		got := FilterRelevant([]domain.Article{tc.article}, 80,
			[]string{"Local-Specific"}, []string{"Construction"})
		if (len(got) == 1) != tc.want {
			t.Errorf("%s: kept=%v, want %v", tc.name, len(got) == 1, tc.want)
		}
	}
}

func TestGroupByJurisdictionOrder(t *testing.T) {
	t.Parallel()

	in := []domain.Article{
		{Title: "1", Jurisdiction: "New Jersey"},
		{Title: "2", Jurisdiction: "New York"},
		{Title: "3", Jurisdiction: "New Jersey"},
		{Title: "4", Jurisdiction: ""},
	}

	order, groups := GroupByJurisdiction(in)

	wantOrder := []string{"New Jersey", "New York", "Other"}
	if len(order) != len(wantOrder) {
		t.Fatalf("got %d groups, want %d", len(order), len(wantOrder))
	}
	for i, j := range wantOrder {
		if order[i] != j {
			t.Fatalf("group %d: got %q, want %q", i, order[i], j)
		}
	}

	if len(groups["New Jersey"]) != 2 {
		t.Fatalf("New Jersey group has %d articles, want 2", len(groups["New Jersey"]))
	}
	if groups["New Jersey"][0].Title != "1" || groups["New Jersey"][1].Title != "3" {
		t.Fatal("group did not preserve input order")
	}
}
