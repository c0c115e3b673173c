package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-intake/internal/posting"
)

const (
	arbeitnowURL  = "https://arbeitnow.com/api/job-board-api"
	arbeitnowName = "Arbeitnow"
)

type ArbeitnowConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Country string `mapstructure:"country"`
	Limit   int    `mapstructure:"limit"`
}

type arbeitnowParams struct {
	Search  string `param:"search"`
	Country string `param:"country"`
	Page    int    `param:"page"`
}

type arbeitnowJob struct {
	Title       string   `json:"title"`
	CompanyName string   `json:"company_name"`
	Location    string   `json:"location"`
	Remote      bool     `json:"remote"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CreatedAt   int64    `json:"created_at"`
}

// Arbeitnow searches the public Arbeitnow job board.
type Arbeitnow struct {
	*client
	cfg    ArbeitnowConfig
	APIURL string
	now    func() time.Time
}

func NewArbeitnow(cfg ArbeitnowConfig, logger *zap.Logger) *Arbeitnow {
	if cfg.Country = strings.ToLower(strings.TrimSpace(cfg.Country)); cfg.Country == "" {
		cfg.Country = defaultCountry
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultPerPage
	}

	return &Arbeitnow{
		client: newClient(logger),
		cfg:    cfg,
		APIURL: arbeitnowURL,
		now:    time.Now,
	}
}

func (a *Arbeitnow) Name() string { return arbeitnowName }

func (a *Arbeitnow) Search(ctx context.Context, query string, page int) ([]*posting.Posting, error) {
	if page < 1 {
		page = 1
	}

	params := &arbeitnowParams{Search: query, Country: a.cfg.Country, Page: page}
	items, err := a.getItems(ctx, a.APIURL, buildParams(params), "data")
	if err != nil {
		return nil, fmt.Errorf("arbeitnow search: %w", err)
	}

	var jobs []arbeitnowJob
	if err := decodeItems(items, &jobs); err != nil {
		return nil, fmt.Errorf("arbeitnow decode: %w", err)
	}

	if len(jobs) > a.cfg.Limit {
		jobs = jobs[:a.cfg.Limit]
	}

	seen := a.now().UTC()
	out := make([]*posting.Posting, 0, len(jobs))
	for _, j := range jobs {
		p := &posting.Posting{
			Title:       strings.TrimSpace(j.Title),
			Company:     strings.TrimSpace(j.CompanyName),
			Location:    strings.TrimSpace(j.Location),
			RemoteType:  remoteType("", j.Remote),
			Portal:      arbeitnowName,
			URL:         j.URL,
			Description: truncate(StripHTML(j.Description), maxDescriptionRunes),
			FirstSeen:   seen,
			Tags:        j.Tags,
		}
		if j.CreatedAt > 0 {
			p.DatePosted = time.Unix(j.CreatedAt, 0).UTC().Format("2006-01-02")
		}
		out = append(out, p)
	}

	return out, nil
}
