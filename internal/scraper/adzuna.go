package scraper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

const (
	adzunaURL      = "https://api.adzuna.com/v1/api/jobs"
	adzunaName     = "Adzuna"
	defaultCountry = "de"
	defaultPerPage = 10
)

type AdzunaConfig struct {
	AppID          string `mapstructure:"app-id"`
	AppKey         string `mapstructure:"app-key"`
	AppKeyFile     string `mapstructure:"app-key-file"`
	Country        string `mapstructure:"country"`
	ResultsPerPage int    `mapstructure:"results-per-page"`
}

type adzunaParams struct {
	AppID          string `param:"app_id"`
	AppKey         string `param:"app_key"`
	What           string `param:"what"`
	ResultsPerPage int    `param:"results_per_page"`
	ContentType    string `param:"content-type"`
}

type adzunaJob struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	RedirectURL string  `json:"redirect_url"`
	Created     string  `json:"created"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
}

// Adzuna searches the Adzuna jobs API.
type Adzuna struct {
	*client
	cfg    AdzunaConfig
	APIURL string
	now    func() time.Time
}

func NewAdzuna(cfg AdzunaConfig, logger *zap.Logger) (*Adzuna, error) {
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppKey) == "" {
		return nil, errors.New("adzuna app id and app key are required")
	}
	if cfg.Country = strings.ToLower(strings.TrimSpace(cfg.Country)); cfg.Country == "" {
		cfg.Country = defaultCountry
	}
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = defaultPerPage
	}

	return &Adzuna{
		client: newClient(logger),
		cfg:    cfg,
		APIURL: adzunaURL,
		now:    time.Now,
	}, nil
}

func (a *Adzuna) Name() string { return adzunaName }

func (a *Adzuna) Search(ctx context.Context, query string, page int) ([]*posting.Posting, error) {
	if page < 1 {
		page = 1
	}

	params := &adzunaParams{
		AppID:          a.cfg.AppID,
		AppKey:         a.cfg.AppKey,
		What:           query,
		ResultsPerPage: a.cfg.ResultsPerPage,
		ContentType:    "application/json",
	}

	endpoint := fmt.Sprintf("%s/%s/search/%d", a.APIURL, a.cfg.Country, page)
	items, err := a.getItems(ctx, endpoint, buildParams(params), "results")
	if err != nil {
		return nil, fmt.Errorf("adzuna search: %w", err)
	}

	var jobs []adzunaJob
	if err := decodeItems(items, &jobs); err != nil {
		return nil, fmt.Errorf("adzuna decode: %w", err)
	}

	seen := a.now().UTC()
	out := make([]*posting.Posting, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, &posting.Posting{
			Title:       strings.TrimSpace(j.Title),
			Company:     strings.TrimSpace(j.Company.DisplayName),
			Location:    strings.TrimSpace(j.Location.DisplayName),
			RemoteType:  remoteType(j.Title+" "+j.Location.DisplayName, false),
			Portal:      adzunaName,
			URL:         j.RedirectURL,
			Description: truncate(StripHTML(j.Description), maxDescriptionRunes),
			SalaryRange: salaryRange(j.SalaryMin, j.SalaryMax),
			DatePosted:  datePart(j.Created),
			FirstSeen:   seen,
		})
	}

	return out, nil
}

func salaryRange(from, to float64) string {
	switch {
	case from <= 0 && to <= 0:
		return ""
	case to <= 0 || from == to:
		return "€" + strconv.FormatFloat(from, 'f', 0, 64)
	case from <= 0:
		return "€" + strconv.FormatFloat(to, 'f', 0, 64)
	default:
		return fmt.Sprintf("€%.0f-€%.0f", from, to)
	}
}

func remoteType(text string, remote bool) string {
	if remote || strings.Contains(strings.ToLower(text), "remote") {
		return "Remote"
	}
	return "On-site"
}

// datePart keeps the YYYY-MM-DD prefix of an RFC 3339 timestamp.
func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
