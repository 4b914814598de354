// Package jetbrains fetches license assignments and IDE usage from the
// JetBrains Account API.
package jetbrains

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/itinfra/seatsweep/internal/utils"
	"github.com/itinfra/seatsweep/pkg/license"
	"github.com/itinfra/seatsweep/pkg/vendors"
	"github.com/itinfra/seatsweep/pkg/whttp"
)

const (
	apiBase  = "https://account.jetbrains.com/api/v1"
	pageSize = 100
)

// Source adapts the JetBrains Account API to the generic UsageSource
// interface.
type Source struct {
	apiKey       string
	customerCode string
	baseURL      string
	client       *http.Client
}

// New builds a JetBrains source from an API key and customer code.
func New(apiKey, customerCode string) *Source {
	return &Source{
		apiKey:       apiKey,
		customerCode: customerCode,
		baseURL:      apiBase,
		client:       whttp.NewClient(30 * time.Second),
	}
}

func (s *Source) Name() string        { return "jetbrains" }
func (s *Source) DisplayName() string { return "JetBrains IDEs" }

func (s *Source) Authenticate(ctx context.Context, cfg vendors.AuthConfig) error {
	if cfg.Token != "" {
		s.apiKey = cfg.Token
	}
	if cfg.CustomerCode != "" {
		s.customerCode = cfg.CustomerCode
	}
	if s.apiKey == "" || s.customerCode == "" {
		return &vendors.AuthError{Vendor: s.Name(), Err: fmt.Errorf("missing api key or customer code")}
	}
	return nil
}

func (s *Source) get(ctx context.Context, url string) (*whttp.WHTTPRes, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    url,
		Headers: []whttp.WHTTPHeader{
			{Name: "X-Api-Key", Value: s.apiKey},
			{Name: "X-Customer-Code", Value: s.customerCode},
		},
	}, s.client)
	if err != nil {
		return nil, &vendors.TransportError{Vendor: s.Name(), Err: err}
	}
	return res, nil
}

// FetchRoster lists team licenses and returns their assignees. Unassigned
// licenses and team admins are skipped: admins hold a seat for billing
// management, not IDE use, so they are exempt from inactivity monitoring.
func (s *Source) FetchRoster(ctx context.Context) ([]license.Identity, error) {
	var roster []license.Identity
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/customer/licenses?perPage=%d&page=%d", s.baseURL, pageSize, page)
		res, err := s.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if res.StatusCode != 200 {
			return nil, vendors.StatusError(s.Name(), "customer "+s.customerCode, res.StatusCode, res.HTTPTitle)
		}

		count := int(gjson.Get(res.BodyString, "licenses.#").Int())
		for i := 0; i < count; i++ {
			prefix := "licenses." + strconv.Itoa(i) + "."
			email := license.NormalizeEmail(gjson.Get(res.BodyString, prefix+"assignee.email").Str)
			name := gjson.Get(res.BodyString, prefix+"assignee.name").Str
			isAdmin := gjson.Get(res.BodyString, prefix+"assignee.isAdmin").Bool()

			if email == "" {
				utils.Log.Debugf("jetbrains: skipping unassigned license %s",
					gjson.Get(res.BodyString, prefix+"licenseId").Str)
				continue
			}
			if isAdmin {
				utils.Log.Debugf("jetbrains: skipping team admin %s", email)
				continue
			}
			if seen[email] {
				continue
			}
			seen[email] = true
			roster = append(roster, license.Identity{Name: name, Email: email, Source: s.Name()})
		}

		if count < pageSize {
			break
		}
	}
	return roster, nil
}

// FetchActivity pulls the per-user daily usage report for the window's date
// range. Rows outside the window (the report granularity is a day, so edges
// can spill) are dropped here so callers never re-filter by date.
func (s *Source) FetchActivity(ctx context.Context, w license.Window) ([]license.ActivityRecord, error) {
	url := fmt.Sprintf("%s/customer/reports/usage?from=%s&to=%s", s.baseURL, w.StartDate(), w.EndDate())
	res, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != 200 {
		return nil, vendors.StatusError(s.Name(), "usage report for "+s.customerCode, res.StatusCode, res.HTTPTitle)
	}

	var records []license.ActivityRecord
	rows := gjson.Get(res.BodyString, "usage")
	rows.ForEach(func(_, row gjson.Result) bool {
		email := license.NormalizeEmail(row.Get("email").Str)
		if email == "" {
			return true
		}
		day, err := time.Parse("2006-01-02", row.Get("date").Str)
		if err != nil {
			utils.Log.Warnf("jetbrains: unparseable usage date %q for %s", row.Get("date").Str, email)
			return true
		}
		dayMS := day.UnixMilli()
		if !w.Contains(dayMS) {
			return true
		}
		records = append(records, license.ActivityRecord{
			Email:  email,
			DayMS:  dayMS,
			Active: row.Get("active").Bool(),
		})
		return true
	})
	return records, nil
}

// SetBaseURL points the source at a different API host. Used by tests.
func (s *Source) SetBaseURL(u string) { s.baseURL = u }
