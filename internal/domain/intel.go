package domain

import "time"

// Article is a single intelligence record fetched from the data provider.
// The provider assigns no identifier; duplicate titles across fetch cycles
// are expected and tolerated.
type Article struct {
	Title          string `json:"title"`
	Source         string `json:"source"`
	URL            string `json:"url,omitempty"`
	Published      string `json:"published"`
	Summary        string `json:"summary,omitempty"`
	Jurisdiction   string `json:"jurisdiction"`
	RelevanceScore int    `json:"relevance_score"`
	Category       string `json:"category"`
}

// DatasetMetadata summarizes an intelligence snapshot.
type DatasetMetadata struct {
	TotalArticles int    `json:"total_articles"`
	LastUpdated   string `json:"last_updated,omitempty"`
	DataSource    string `json:"data_source,omitempty"`
}

// IntelligenceDataset is the current snapshot of fetched articles. It is
// replaced wholesale on every successful refresh; there is no incremental merge.
type IntelligenceDataset struct {
	Articles []Article       `json:"articles"`
	Metadata DatasetMetadata `json:"metadata"`
}

// Empty reports whether the dataset carries no articles.
func (d IntelligenceDataset) Empty() bool {
	return len(d.Articles) == 0
}

// IntelligenceSnapshot bundles the dataset with its refresh marker so both
// are written and read as one value. A reader must never observe articles
// from one refresh with the timestamp of another.
type IntelligenceSnapshot struct {
	Dataset     IntelligenceDataset `json:"dataset"`
	LastUpdated time.Time           `json:"last_updated"`
}

const (
	// DefaultCategory is assigned when the provider omits an article category.
	DefaultCategory = "General"
	// DefaultJurisdiction is assigned when no jurisdiction can be determined.
	DefaultJurisdiction = "Other"
)

// Normalize fills the defaults the provider is allowed to omit.
func (a *Article) Normalize() {
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.Jurisdiction == "" {
		a.Jurisdiction = DefaultJurisdiction
	}
	if a.RelevanceScore < 0 {
		a.RelevanceScore = 0
	}
	if a.RelevanceScore > 100 {
		a.RelevanceScore = 100
	}
}
