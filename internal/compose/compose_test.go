package compose

import (
	"strings"
	"testing"
	"time"

	"intelpipeline/internal/domain"
)

var testTime = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func sampleGroups() ([]string, map[string][]domain.Article) {
	order := []string{"New Jersey", "New York"}
	groups := map[string][]domain.Article{
		"New Jersey": {
			{Title: "Bridge Contract Awarded", Source: "NJ Wire", RelevanceScore: 92,
				Summary: "Acme Construction wins the span rebuild.", URL: "https://example.org/a"},
		},
		"New York": {
			{Title: "Tunnel Project Update", Source: "NY Ledger", RelevanceScore: 85},
		},
	}
	return order, groups
}

func TestInsightDeterministic(t *testing.T) {
	t.Parallel()

	order, groups := sampleGroups()
	names := []string{"Acme Construction"}

	first := Insight(order, groups, testTime, names)
	second := Insight(order, groups, testTime, names)

	if first.Body != second.Body {
		t.Fatal("composing the same input twice produced different bodies")
	}
	if first.Title != second.Title {
		t.Fatal("composing the same input twice produced different titles")
	}
}

func TestInsightStructure(t *testing.T) {
	t.Parallel()

	order, groups := sampleGroups()
	content := Insight(order, groups, testTime, nil)

	if content.Title != "Intelligence Update - Mar 15, 2024" {
		t.Fatalf("unexpected title: %q", content.Title)
	}
	if content.ContentType != domain.ContentInsight {
		t.Fatalf("unexpected content type: %q", content.ContentType)
	}

	for _, want := range []string{
		"Executive Summary",
		"New Jersey Focus",
		"New York Focus",
		"Bridge Contract Awarded",
		"NJ Wire",
		"92/100",
		"Strategic Implications",
		`<a href="https://example.org/a">`,
	} {
		if !strings.Contains(content.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	// Section order must follow jurisdictionOrder.
	nj := strings.Index(content.Body, "New Jersey Focus")
	ny := strings.Index(content.Body, "New York Focus")
	if nj < 0 || ny < 0 || nj > ny {
		t.Fatal("jurisdiction sections out of order")
	}
}

func TestInsightTagsIncludeMentions(t *testing.T) {
	t.Parallel()

	order, groups := sampleGroups()
	content := Insight(order, groups, testTime, []string{"Acme Construction", "Unrelated Corp"})

	want := map[string]bool{"New Jersey": true, "New York": true, "Acme Construction": true}
	if len(content.Tags) != len(want) {
		t.Fatalf("got tags %v, want exactly %v", content.Tags, want)
	}
	for _, tag := range content.Tags {
		if !want[tag] {
			t.Errorf("unexpected tag %q", tag)
		}
	}
}

func TestCompanyProfile(t *testing.T) {
	t.Parallel()

	company := domain.Company{
		ID:          "acme-construction",
		Name:        "Acme Construction",
		Industry:    "Heavy Civil",
		Status:      domain.StatusSignatory,
		Source:      "provider",
		LastUpdated: "2024-03-01 12:00:00",
		Notes:       "Active on two bridge projects.",
	}

	content := CompanyProfile(company, testTime)

	if content.Title != "Acme Construction" {
		t.Fatalf("unexpected title %q", content.Title)
	}
	if content.LinkedID != "acme-construction" {
		t.Fatalf("unexpected linked id %q", content.LinkedID)
	}
	if content.ContentType != domain.ContentCompanyProfile {
		t.Fatalf("unexpected content type %q", content.ContentType)
	}
	for _, want := range []string{"Heavy Civil", "Signatory", "Notes & Analysis", "Active on two bridge projects.", "Monitoring Status"} {
		if !strings.Contains(content.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}

	again := CompanyProfile(company, testTime)
	if again.Body != content.Body {
		t.Fatal("profile body not deterministic")
	}
}

func TestCompanyProfileOmitsEmptyNotes(t *testing.T) {
	t.Parallel()

	content := CompanyProfile(domain.Company{ID: "x", Name: "X", Status: "Active"}, testTime)
	if strings.Contains(content.Body, "Notes & Analysis") {
		t.Fatal("notes section should be omitted when notes are empty")
	}
}

func TestExtractMentionsCaseInsensitive(t *testing.T) {
	t.Parallel()

	body := "<p>ACME CONSTRUCTION signed with the county.</p>"
	got := ExtractMentions(body, []string{"Acme Construction", "Other Co"})
	if len(got) != 1 || got[0] != "Acme Construction" {
		t.Fatalf("got %v, want [Acme Construction]", got)
	}
}
