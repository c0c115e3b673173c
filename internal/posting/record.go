package posting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	ColumnJobID        = "Job ID"
	ColumnDatePosted   = "Date Posted"
	ColumnDateScraped  = "Date Scraped"
	ColumnPortal       = "Job Portal"
	ColumnURL          = "Job URL"
	ColumnPriority     = "Priority Level"
	ColumnVerification = "Verification Status"
	ColumnTitle        = "Job Title"
	ColumnCompany      = "Company Name"
	ColumnLocation     = "Location"
	ColumnRemoteType   = "Remote Type"
	ColumnSalary       = "Salary Range"
	ColumnScore        = "Match Score"
	ColumnSkillsPct    = "Skills Match %"
	ColumnRequired     = "Required Skills"
	ColumnMatched      = "Your Matching Skills"
	ColumnMissing      = "Missing Skills"
	ColumnLearnable    = "Learnable in 1 Week?"
	ColumnExperience   = "Experience Level Match"
	ColumnMission      = "Company Mission"
	ColumnValues       = "Company Values"
	ColumnCulture      = "Company Culture Keywords"
	ColumnTech         = "Tech Stack Used"
	ColumnAutoApply    = "Auto-Apply Approved"
	ColumnApplied      = "Applied"
	ColumnFinalStatus  = "Final Status"
	ColumnNotes        = "Notes"
	ColumnTags         = "Tags"
	ColumnRedFlags     = "Red Flags"
	ColumnDescription  = "Job Description"

	maxFormattedSkills = 15
	listSeparator      = ", "
)

// Columns is the fixed, ordered layout of a stored posting row.
var Columns = []string{
	ColumnJobID, ColumnDatePosted, ColumnDateScraped, ColumnPortal, ColumnURL,
	ColumnPriority, ColumnVerification, ColumnTitle, ColumnCompany, ColumnLocation,
	ColumnRemoteType, ColumnSalary, "Benefits", "Application Deadline", ColumnScore,
	ColumnSkillsPct, ColumnRequired, ColumnMatched, ColumnMissing, ColumnLearnable,
	ColumnExperience, ColumnMission, ColumnValues, ColumnCulture, ColumnTech,
	"Recent Projects", "Employee Count", "Company Email", "HR Contact Name", "HR Contact Title",
	"HR LinkedIn URL", "Recruiter Email", "Best Contact Method", ColumnAutoApply, ColumnApplied,
	"Application Date", "Application Actually Sent", "Email Confirmation Received", "Application Method", "CV Version Used",
	"Cover Letter Used", "Follow-up Email Sent", "Follow-up Date", "Response Received", "Response Date",
	"Response Type", "Days to Response", "Interview Scheduled", "Interview Date", ColumnFinalStatus,
	"Rejection Reason", "Portal Performance Tag", ColumnNotes, ColumnTags, ColumnRedFlags,
	"Green Flags", ColumnDescription,
}

// ColumnKey converts a column name into a storage friendly snake_case identifier.
func ColumnKey(column string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(column) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// Record renders the posting as a row keyed by column name.
// Every column in Columns is present, unknown values are empty strings.
func (p *Posting) Record() map[string]string {
	row := make(map[string]string, len(Columns))
	for _, c := range Columns {
		row[c] = ""
	}

	row[ColumnJobID] = p.ID
	row[ColumnDatePosted] = p.DatePosted
	if !p.FirstSeen.IsZero() {
		row[ColumnDateScraped] = p.FirstSeen.Format(dateLayout)
	}
	row[ColumnPortal] = p.Portal
	row[ColumnURL] = p.URL
	row[ColumnPriority] = p.Priority
	row[ColumnVerification] = p.Verification
	row[ColumnTitle] = p.Title
	row[ColumnCompany] = p.Company
	row[ColumnLocation] = p.Location
	row[ColumnRemoteType] = p.RemoteType
	row[ColumnSalary] = p.SalaryRange
	row[ColumnScore] = strconv.FormatFloat(p.Score, 'f', 0, 64)
	row[ColumnDescription] = p.Description
	row[ColumnNotes] = p.Notes
	row[ColumnTags] = strings.Join(p.Tags, listSeparator)
	row[ColumnRedFlags] = strings.Join(p.RedFlags, listSeparator)
	row[ColumnAutoApply] = "No"
	row[ColumnApplied] = "No"

	if m := p.Match; m != nil {
		row[ColumnSkillsPct] = strconv.FormatFloat(m.Percent, 'f', 1, 64)
		row[ColumnRequired] = FormatSkills(m.Required)
		row[ColumnMatched] = FormatSkills(m.Matched)
		row[ColumnMissing] = FormatSkills(m.Missing)
		row[ColumnLearnable] = yesNo(m.Learnable)
		row[ColumnExperience] = m.Tier
	}

	row[ColumnMission] = p.Intel.Mission
	row[ColumnValues] = p.Intel.Values
	row[ColumnCulture] = p.Intel.Culture
	row[ColumnTech] = p.Intel.Tech

	return row
}

// FromRecord rebuilds the identity, scoring and research fields of a posting from a stored row.
func FromRecord(row map[string]string) *Posting {
	p := &Posting{
		ID:           row[ColumnJobID],
		DatePosted:   row[ColumnDatePosted],
		Portal:       row[ColumnPortal],
		URL:          row[ColumnURL],
		Priority:     row[ColumnPriority],
		Verification: row[ColumnVerification],
		Title:        row[ColumnTitle],
		Company:      row[ColumnCompany],
		Location:     row[ColumnLocation],
		RemoteType:   row[ColumnRemoteType],
		SalaryRange:  row[ColumnSalary],
		Description:  row[ColumnDescription],
		Notes:        row[ColumnNotes],
		Tags:         ParseSkillsText(row[ColumnTags]),
		RedFlags:     ParseSkillsText(row[ColumnRedFlags]),
		Intel: CompanyIntel{
			Mission: row[ColumnMission],
			Values:  row[ColumnValues],
			Culture: row[ColumnCulture],
			Tech:    row[ColumnTech],
		},
	}

	if t, err := time.Parse(dateLayout, row[ColumnDateScraped]); err == nil {
		p.FirstSeen = t
	}
	if score, err := strconv.ParseFloat(row[ColumnScore], 64); err == nil {
		p.Score = score
	}

	if row[ColumnExperience] != "" || row[ColumnRequired] != "" {
		m := &MatchResult{
			Required:  ParseSkillsText(row[ColumnRequired]),
			Matched:   ParseSkillsText(row[ColumnMatched]),
			Missing:   ParseSkillsText(row[ColumnMissing]),
			Tier:      row[ColumnExperience],
			Learnable: row[ColumnLearnable] == "Yes",
		}
		if pct, err := strconv.ParseFloat(row[ColumnSkillsPct], 64); err == nil {
			m.Percent = pct
		}
		p.Match = m
	}

	return p
}

// FormatSkills renders a skill list for storage: trimmed, de-duplicated
// case-insensitively in first-seen order, capped and comma joined.
// Items containing commas are split first so ParseSkillsText reads back
// the same list. An empty list renders as N/A.
func FormatSkills(skills []string) string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, item := range skills {
		for _, s := range strings.Split(item, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
			if len(out) == maxFormattedSkills {
				return strings.Join(out, listSeparator)
			}
		}
	}

	if len(out) == 0 {
		return NotAvailable
	}
	return strings.Join(out, listSeparator)
}

// ParseSkillsText splits a stored skill list back into items.
func ParseSkillsText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, NotAvailable) {
		return nil
	}

	var out []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// String is used by log fields and summaries.
func (p *Posting) String() string {
	return fmt.Sprintf("%s | %s | %s", p.Title, p.Company, p.Location)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
