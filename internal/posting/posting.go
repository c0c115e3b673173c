package posting

import (
	"encoding/json"
	"os"
	"strings"
	"time"
)

const (
	PostingIDField      = "ID"
	PostingCompanyField = "Company"
	PostingURLField     = "URL"

	PriorityHigh   = "High"
	PriorityMedium = "Medium"

	VerificationNew = "New"

	AlertSent    = "Sent"
	AlertSkipped = "Skipped"
	AlertFailed  = "Failed"

	NotAvailable = "N/A"

	dateLayout = "2006-01-02"
)

// Postings is an ordered collection of scraped job postings.
type Postings struct {
	Items []*Posting
}

// Posting is one job advertisement moving through the intake pipeline.
// Fields below FirstSeen are filled by later stages.
type Posting struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	RemoteType  string    `json:"remote_type,omitempty"`
	Portal      string    `json:"portal,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	SalaryRange string    `json:"salary_range,omitempty"`
	DatePosted  string    `json:"date_posted,omitempty"`
	FirstSeen   time.Time `json:"first_seen,omitempty"`

	Match        *MatchResult `json:"match,omitempty"`
	Intel        CompanyIntel `json:"intel,omitempty"`
	Score        float64      `json:"score,omitempty"`
	Priority     string       `json:"priority,omitempty"`
	Verification string       `json:"verification,omitempty"`
	AlertStatus  string       `json:"alert_status,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	RedFlags     []string     `json:"red_flags,omitempty"`
}

// MatchResult is the outcome of matching a description against the profile.
type MatchResult struct {
	Required  []string `json:"required"`
	Matched   []string `json:"matched"`
	Missing   []string `json:"missing"`
	Percent   float64  `json:"percent"`
	Tier      string   `json:"tier"`
	Learnable bool     `json:"learnable"`
	Source    string   `json:"source,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// CompanyIntel holds short research notes about the hiring company.
type CompanyIntel struct {
	Mission string `json:"mission,omitempty"`
	Values  string `json:"values,omitempty"`
	Culture string `json:"culture,omitempty"`
	Tech    string `json:"tech,omitempty"`
}

// EmptyIntel returns intel with every field set to N/A.
func EmptyIntel() CompanyIntel {
	return CompanyIntel{
		Mission: NotAvailable,
		Values:  NotAvailable,
		Culture: NotAvailable,
		Tech:    NotAvailable,
	}
}

// PriorityFor maps a score onto the stored priority level.
func PriorityFor(score float64) string {
	if score >= 85 {
		return PriorityHigh
	}
	return PriorityMedium
}

// HasIdentity reports whether the posting carries the fields needed to compare it with others.
func (p *Posting) HasIdentity() bool {
	return strings.TrimSpace(p.Title) != "" && strings.TrimSpace(p.Company) != ""
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case PostingIDField:
		return p.ID
	case PostingCompanyField:
		return p.Company
	case PostingURLField:
		return p.URL
	default:
		return ""
	}
}

func (v *Postings) Len() int {
	return len(v.Items)
}

func (v *Postings) FindByID(id string) *Posting {
	for _, p := range v.Items {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Exclude drops postings whose field matches any of targets case-insensitively.
// Order of the remaining postings is preserved.
func (v *Postings) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, p := range v.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(p.GetStringField(name)))]; ok {
			excluded = append(excluded, p.Title)
			continue
		}
		kept = append(kept, p)
	}
	v.Items = kept

	return excluded
}

// Filter keeps postings for which keep returns true and returns titles of the dropped ones.
func (v *Postings) Filter(keep func(*Posting) bool) []string {
	var dropped []string
	kept := v.Items[:0]
	for _, p := range v.Items {
		if keep(p) {
			kept = append(kept, p)
			continue
		}
		dropped = append(dropped, p.Title)
	}
	v.Items = kept
	return dropped
}

func (v *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByCompany groups postings by company for a quick overview.
func (v *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, p := range v.Items {
		report[p.Company] = append(report[p.Company], map[string]string{
			"id":       p.ID,
			"title":    p.Title,
			"url":      p.URL,
			"location": p.Location,
			"priority": p.Priority,
		})
	}
	return report
}
