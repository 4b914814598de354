package jetbrains

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itinfra/seatsweep/pkg/license"
	"github.com/itinfra/seatsweep/pkg/vendors"
)

func newTestSource(handler http.Handler) (*Source, *httptest.Server) {
	srv := httptest.NewServer(handler)
	s := New("key", "CUST-1")
	s.SetBaseURL(srv.URL)
	return s, srv
}

func TestFetchRosterFiltersAdminsAndUnassigned(t *testing.T) {
	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customer/licenses" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key" || r.Header.Get("X-Customer-Code") != "CUST-1" {
			t.Fatalf("missing auth headers")
		}
		fmt.Fprint(w, `{"licenses":[
			{"licenseId":"L1","assignee":{"email":"Jane@X.com","name":"Jane","isAdmin":false}},
			{"licenseId":"L2","assignee":{"email":"boss@x.com","name":"Boss","isAdmin":true}},
			{"licenseId":"L3"},
			{"licenseId":"L4","assignee":{"email":"jane@x.com","name":"Jane Again","isAdmin":false}}
		]}`)
	}))
	defer srv.Close()

	roster, err := s.FetchRoster(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected 1 identity (admin, unassigned, dup filtered), got %d", len(roster))
	}
	if roster[0].Email != "jane@x.com" || roster[0].Source != "jetbrains" {
		t.Fatalf("unexpected identity: %+v", roster[0])
	}
}

func TestFetchActivityFiltersWindow(t *testing.T) {
	now := time.Now().UTC()
	inside := now.AddDate(0, 0, -10).Format("2006-01-02")
	outside := now.AddDate(0, 0, -120).Format("2006-01-02")

	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customer/reports/usage" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"usage":[
			{"email":"jane@x.com","date":"%s","active":true},
			{"email":"jane@x.com","date":"%s","active":true},
			{"email":"john@x.com","date":"%s","active":false}
		]}`, inside, outside, inside)
	}))
	defer srv.Close()

	win, err := license.ComputeWindow(60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := s.FetchActivity(context.Background(), win)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The 120-day-old row must be dropped; callers never re-filter by date.
	if len(records) != 2 {
		t.Fatalf("expected 2 in-window records, got %d: %+v", len(records), records)
	}
	for _, r := range records {
		if !win.Contains(r.DayMS) {
			t.Fatalf("record outside requested window: %+v", r)
		}
	}
}

func TestStatusCodeTaxonomy(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{401, func(err error) bool { var e *vendors.AuthError; return errors.As(err, &e) }},
		{403, func(err error) bool { var e *vendors.AuthError; return errors.As(err, &e) }},
		{404, func(err error) bool { var e *vendors.NotFoundError; return errors.As(err, &e) }},
		{500, func(err error) bool { var e *vendors.TransportError; return errors.As(err, &e) }},
	}

	for _, c := range cases {
		s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))

		_, err := s.FetchRoster(context.Background())
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", c.status)
		}
		if !c.check(err) {
			t.Fatalf("status %d mapped to wrong error type: %v", c.status, err)
		}
	}
}

func TestFetchRosterPaginates(t *testing.T) {
	page := 0
	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page++
		if r.URL.Query().Get("page") == "1" {
			// Full page forces a second request.
			fmt.Fprint(w, `{"licenses":[`)
			for i := 0; i < pageSize; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"assignee":{"email":"user%d@x.com","name":"U%d"}}`, i, i)
			}
			fmt.Fprint(w, `]}`)
			return
		}
		fmt.Fprint(w, `{"licenses":[{"assignee":{"email":"last@x.com","name":"Last"}}]}`)
	}))
	defer srv.Close()

	roster, err := s.FetchRoster(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", page)
	}
	if len(roster) != pageSize+1 {
		t.Fatalf("expected %d identities, got %d", pageSize+1, len(roster))
	}
}
