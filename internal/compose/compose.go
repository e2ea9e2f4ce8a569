// Package compose turns ranked articles and company records into structured
// content bodies. Compositions are referentially transparent: the same input
// always yields byte-identical output, so re-running a generation over
// unchanged data produces identical content and publishers may treat it as a
// no-op.
package compose

import (
	"fmt"
	"strings"
	"time"

	"intelpipeline/internal/domain"
)

const (
	insightTitlePrefix = "Intelligence Update - "
	insightDateFormat  = "Jan 2, 2006"
	generatedAtFormat  = "January 2, 2006 at 3:04 PM"
)

// Insight composes the periodic intelligence post from articles grouped by
// jurisdiction. jurisdictionOrder controls section order (first-appearance
// order from the ranked sequence). companyNames is the tracked-company list
// scanned for mentions; matches become tags alongside the jurisdictions.
func Insight(jurisdictionOrder []string, groups map[string][]domain.Article, generatedAt time.Time, companyNames []string) domain.GeneratedContent {
	total := 0
	for _, as := range groups {
		total += len(as)
	}

	var b strings.Builder
	b.WriteString(`<div class="intelligence-insight">` + "\n")
	b.WriteString("<h2>Intelligence Analysis</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Generated:</strong> %s</p>\n", generatedAt.Format(generatedAtFormat))
	fmt.Fprintf(&b, "<p><strong>Articles Analyzed:</strong> %d</p>\n", total)

	b.WriteString("<h3>Executive Summary</h3>\n")
	b.WriteString("<p>This intelligence update provides key insights on industry activity, jurisdictional developments, and strategic opportunities drawn from the current monitoring cycle.</p>\n")

	for _, jurisdiction := range jurisdictionOrder {
		articles := groups[jurisdiction]
		if len(articles) == 0 {
			continue
		}
		fmt.Fprintf(&b, "<h3>%s Focus</h3>\n", jurisdiction)
		fmt.Fprintf(&b, "<p><strong>Key Articles:</strong> %d</p>\n", len(articles))
		for _, a := range articles {
			b.WriteString(`<div class="article-insight">` + "\n")
			fmt.Fprintf(&b, "<h4>%s</h4>\n", a.Title)
			fmt.Fprintf(&b, "<p><strong>Source:</strong> %s | <strong>Relevance:</strong> %d/100</p>\n", a.Source, a.RelevanceScore)
			if a.Summary != "" {
				fmt.Fprintf(&b, "<p>%s</p>\n", a.Summary)
			}
			if a.URL != "" {
				fmt.Fprintf(&b, "<p><a href=%q>Read Full Article</a></p>\n", a.URL)
			}
			b.WriteString("</div>\n")
		}
	}

	b.WriteString("<h3>Strategic Implications</h3>\n")
	b.WriteString("<p>Based on this analysis, priorities are:</p>\n")
	b.WriteString("<ul>\n")
	b.WriteString("<li>Monitoring active projects in key jurisdictions</li>\n")
	b.WriteString("<li>Identifying partnership opportunities with mentioned companies</li>\n")
	b.WriteString("<li>Staying informed about industry trends and regulations</li>\n")
	b.WriteString("</ul>\n")

	b.WriteString("<h3>Next Steps</h3>\n")
	b.WriteString("<p>Continue monitoring these sources for updates and evaluate outreach to relevant companies.</p>\n")
	b.WriteString("</div>\n")

	body := b.String()

	tags := make([]string, 0, len(jurisdictionOrder))
	seen := make(map[string]struct{}, len(jurisdictionOrder))
	for _, j := range jurisdictionOrder {
		if _, ok := seen[j]; ok {
			continue
		}
		seen[j] = struct{}{}
		tags = append(tags, j)
	}
	for _, name := range ExtractMentions(body, companyNames) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}

	return domain.GeneratedContent{
		Title:       insightTitlePrefix + generatedAt.Format(insightDateFormat),
		Body:        body,
		ContentType: domain.ContentInsight,
		Tags:        tags,
		GeneratedAt: generatedAt,
	}
}

// CompanyProfile composes the profile post for one tracked company. The body
// depends only on the company record, so regenerating an unchanged company
// yields an identical document.
func CompanyProfile(company domain.Company, generatedAt time.Time) domain.GeneratedContent {
	var b strings.Builder
	b.WriteString(`<div class="company-profile">` + "\n")
	fmt.Fprintf(&b, "<h2>%s - Company Profile</h2>\n", company.Name)
	if company.LastUpdated != "" {
		fmt.Fprintf(&b, "<p><strong>Last Updated:</strong> %s</p>\n", company.LastUpdated)
	}

	b.WriteString(`<div class="company-overview">` + "\n")
	b.WriteString("<h3>Company Overview</h3>\n")
	b.WriteString("<table>\n")
	fmt.Fprintf(&b, "<tr><td><strong>Industry:</strong></td><td>%s</td></tr>\n", company.Industry)
	fmt.Fprintf(&b, "<tr><td><strong>Status:</strong></td><td>%s</td></tr>\n", company.Status)
	fmt.Fprintf(&b, "<tr><td><strong>Source:</strong></td><td>%s</td></tr>\n", company.Source)
	b.WriteString("</table>\n")
	b.WriteString("</div>\n")

	if company.Notes != "" {
		b.WriteString(`<div class="company-notes">` + "\n")
		b.WriteString("<h3>Notes & Analysis</h3>\n")
		fmt.Fprintf(&b, "<p>%s</p>\n", company.Notes)
		b.WriteString("</div>\n")
	}

	b.WriteString(`<div class="company-relevance">` + "\n")
	b.WriteString("<h3>Relevance</h3>\n")
	b.WriteString("<p>This company has been identified as relevant based on:</p>\n")
	b.WriteString("<ul>\n")
	b.WriteString("<li>Industry alignment with monitored sectors</li>\n")
	b.WriteString("<li>Geographic presence in tracked jurisdictions</li>\n")
	b.WriteString("<li>Potential for partnership or employment opportunities</li>\n")
	b.WriteString("</ul>\n")
	b.WriteString("</div>\n")

	b.WriteString(`<div class="monitoring-status">` + "\n")
	b.WriteString("<h3>Monitoring Status</h3>\n")
	fmt.Fprintf(&b, "<p><strong>Current Status:</strong> %s</p>\n", company.Status)
	b.WriteString("<p>This company is actively monitored for updates and opportunities.</p>\n")
	b.WriteString("</div>\n")
	b.WriteString("</div>\n")

	return domain.GeneratedContent{
		Title:       company.Name,
		Body:        b.String(),
		ContentType: domain.ContentCompanyProfile,
		Tags:        []string{company.Name},
		LinkedID:    company.ID,
		GeneratedAt: generatedAt,
	}
}

// ExtractMentions returns the tracked company names that appear, case
// insensitively, anywhere in the composed body text. Both sets are small, so
// a direct scan is fine.
func ExtractMentions(body string, companyNames []string) []string {
	if body == "" || len(companyNames) == 0 {
		return nil
	}
	lower := strings.ToLower(body)
	var mentions []string
	for _, name := range companyNames {
		if name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(name)) {
			mentions = append(mentions, name)
		}
	}
	return mentions
}
