// Package copilot fetches Copilot seat assignments and activity from the
// GitHub org billing API.
package copilot

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/tidwall/gjson"

	"github.com/itinfra/seatsweep/internal/utils"
	"github.com/itinfra/seatsweep/pkg/license"
	"github.com/itinfra/seatsweep/pkg/vendors"
	"github.com/itinfra/seatsweep/pkg/whttp"
)

const (
	apiBase  = "https://api.github.com"
	pageSize = 100
)

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Source adapts the GitHub Copilot seat-billing API to the generic
// UsageSource interface. GitHub reports a seat's last activity timestamp
// rather than a daily log, so activity records are synthesized from
// last_activity_at (one active record per seat that touched Copilot inside
// the window).
type Source struct {
	token   string
	org     string
	baseURL string
	client  *http.Client

	// seat payloads are reused between FetchRoster and the two FetchActivity
	// calls of a run to spare API quota; guarded by nothing since the
	// orchestrator serializes roster before activity.
	seatsBody []string
}

// New builds a Copilot source from a GitHub token and org slug.
func New(token, org string) *Source {
	return &Source{
		token:   token,
		org:     org,
		baseURL: apiBase,
		client:  whttp.NewClient(30 * time.Second),
	}
}

func (s *Source) Name() string        { return "copilot" }
func (s *Source) DisplayName() string { return "GitHub Copilot" }

func (s *Source) Authenticate(ctx context.Context, cfg vendors.AuthConfig) error {
	if cfg.Token != "" {
		s.token = cfg.Token
	}
	if cfg.Organization != "" {
		s.org = cfg.Organization
	}
	if s.token == "" || s.org == "" {
		return &vendors.AuthError{Vendor: s.Name(), Err: fmt.Errorf("missing token or organization")}
	}
	return nil
}

func (s *Source) get(ctx context.Context, url string) (*whttp.WHTTPRes, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    url,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + s.token},
			{Name: "X-GitHub-Api-Version", Value: "2022-11-28"},
		},
	}, s.client)
	if err != nil {
		return nil, &vendors.TransportError{Vendor: s.Name(), Err: err}
	}
	return res, nil
}

// nextLink extracts the rel="next" URL from a GitHub Link header.
func nextLink(h http.Header) string {
	m := linkNextRe.FindStringSubmatch(h.Get("Link"))
	if m == nil {
		return ""
	}
	return m[1]
}

// fetchSeats pages through the org's Copilot seats and caches the raw pages.
func (s *Source) fetchSeats(ctx context.Context) ([]string, error) {
	if s.seatsBody != nil {
		return s.seatsBody, nil
	}

	var pages []string
	url := fmt.Sprintf("%s/orgs/%s/copilot/billing/seats?per_page=%d", s.baseURL, s.org, pageSize)
	for url != "" {
		res, err := s.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != 200 {
			return nil, vendors.StatusError(s.Name(), "organization "+s.org, res.StatusCode, res.HTTPTitle)
		}
		pages = append(pages, res.BodyString)
		url = nextLink(res.Headers)
	}
	s.seatsBody = pages
	return pages, nil
}

// fetchOwners returns the org owners' logins. Owners keep a seat by policy
// and are exempt from inactivity monitoring.
func (s *Source) fetchOwners(ctx context.Context) (map[string]bool, error) {
	owners := make(map[string]bool)
	url := fmt.Sprintf("%s/orgs/%s/members?role=admin&per_page=%d", s.baseURL, s.org, pageSize)
	for url != "" {
		res, err := s.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != 200 {
			return nil, vendors.StatusError(s.Name(), "organization "+s.org, res.StatusCode, res.HTTPTitle)
		}
		gjson.Parse(res.BodyString).ForEach(func(_, m gjson.Result) bool {
			owners[m.Get("login").Str] = true
			return true
		})
		url = nextLink(res.Headers)
	}
	return owners, nil
}

func (s *Source) FetchRoster(ctx context.Context) ([]license.Identity, error) {
	pages, err := s.fetchSeats(ctx)
	if err != nil {
		return nil, err
	}
	owners, err := s.fetchOwners(ctx)
	if err != nil {
		return nil, err
	}

	var roster []license.Identity
	seen := make(map[string]bool)
	for _, page := range pages {
		seats := gjson.Get(page, "seats")
		seats.ForEach(func(_, seat gjson.Result) bool {
			login := seat.Get("assignee.login").Str
			email := license.NormalizeEmail(seat.Get("assignee.email").Str)
			name := seat.Get("assignee.name").Str
			if name == "" {
				name = login
			}

			if owners[login] {
				utils.Log.Debugf("copilot: skipping org owner %s", login)
				return true
			}
			if email == "" {
				utils.Log.Warnf("copilot: seat for %s has no email, cannot monitor", login)
				return true
			}
			if seen[email] {
				return true
			}
			seen[email] = true
			roster = append(roster, license.Identity{Name: name, Email: email, Source: s.Name()})
			return true
		})
	}
	return roster, nil
}

// FetchActivity derives records from each seat's last_activity_at. A seat
// whose last activity falls inside the window yields one active record;
// seats idle for the whole window yield nothing, which the classifier reads
// as inactivity.
func (s *Source) FetchActivity(ctx context.Context, w license.Window) ([]license.ActivityRecord, error) {
	pages, err := s.fetchSeats(ctx)
	if err != nil {
		return nil, err
	}

	var records []license.ActivityRecord
	for _, page := range pages {
		gjson.Get(page, "seats").ForEach(func(_, seat gjson.Result) bool {
			email := license.NormalizeEmail(seat.Get("assignee.email").Str)
			lastActivity := seat.Get("last_activity_at").Str
			if email == "" || lastActivity == "" {
				return true
			}
			ts, err := time.Parse(time.RFC3339, lastActivity)
			if err != nil {
				utils.Log.Warnf("copilot: unparseable last_activity_at %q for %s", lastActivity, email)
				return true
			}
			ms := ts.UnixMilli()
			if !w.Contains(ms) {
				return true
			}
			records = append(records, license.ActivityRecord{Email: email, DayMS: ms, Active: true})
			return true
		})
	}
	return records, nil
}

// SetBaseURL points the source at a different API host. Used by tests.
func (s *Source) SetBaseURL(u string) { s.baseURL = u }
