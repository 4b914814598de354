package copilot

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

func seatJSON(login, email, lastActivity string) string {
	return fmt.Sprintf(`{"assignee":{"login":"%s","email":"%s","name":""},"last_activity_at":"%s"}`,
		login, email, lastActivity)
}

func newTestSource(handler http.Handler) (*Source, *httptest.Server) {
	srv := httptest.NewServer(handler)
	s := New("tok", "acme")
	s.SetBaseURL(srv.URL)
	return s, srv
}

func TestFetchRosterExcludesOwners(t *testing.T) {
	recent := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orgs/acme/copilot/billing/seats":
			fmt.Fprintf(w, `{"seats":[%s,%s,%s]}`,
				seatJSON("jane", "jane@x.com", recent),
				seatJSON("boss", "boss@x.com", recent),
				seatJSON("noemail", "", recent))
		case "/orgs/acme/members":
			if r.URL.Query().Get("role") != "admin" {
				t.Fatalf("expected role=admin query, got %q", r.URL.RawQuery)
			}
			fmt.Fprint(w, `[{"login":"boss"}]`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	roster, err := s.FetchRoster(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected only jane (owner and email-less seats exempt), got %+v", roster)
	}
	if roster[0].Email != "jane@x.com" || roster[0].Name != "jane" {
		t.Fatalf("unexpected identity: %+v", roster[0])
	}
}

func TestFetchActivityWindowsLastActivity(t *testing.T) {
	recent := time.Now().UTC().AddDate(0, 0, -10).Format(time.RFC3339)
	ancient := time.Now().UTC().AddDate(0, 0, -200).Format(time.RFC3339)

	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orgs/acme/copilot/billing/seats":
			fmt.Fprintf(w, `{"seats":[%s,%s]}`,
				seatJSON("jane", "jane@x.com", recent),
				seatJSON("john", "john@x.com", ancient))
		case "/orgs/acme/members":
			fmt.Fprint(w, `[]`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	win, err := license.ComputeWindow(90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := s.FetchActivity(context.Background(), win)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Email != "jane@x.com" || !records[0].Active {
		t.Fatalf("expected one active record for jane, got %+v", records)
	}
}

func TestFetchSeatsPaginatesAndCaches(t *testing.T) {
	recent := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	seatCalls := 0

	var srvURL string
	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orgs/acme/copilot/billing/seats":
			seatCalls++
			if r.URL.Query().Get("page") == "" {
				w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/acme/copilot/billing/seats?page=2>; rel="next"`, srvURL))
				fmt.Fprintf(w, `{"seats":[%s]}`, seatJSON("jane", "jane@x.com", recent))
				return
			}
			fmt.Fprintf(w, `{"seats":[%s]}`, seatJSON("john", "john@x.com", recent))
		case "/orgs/acme/members":
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	roster, err := s.FetchRoster(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected both pages' seats, got %+v", roster)
	}
	if seatCalls != 2 {
		t.Fatalf("expected 2 seat page fetches, got %d", seatCalls)
	}

	// The two activity fetches of a run must reuse the cached pages.
	win, _ := license.ComputeWindow(60)
	if _, err := s.FetchActivity(context.Background(), win); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seatCalls != 2 {
		t.Fatalf("seat pages refetched despite cache: %d calls", seatCalls)
	}
}

func TestOrgNotFound(t *testing.T) {
	s, srv := newTestSource(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer srv.Close()

	_, err := s.FetchRoster(context.Background())
	var nf *vendors.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *vendors.NotFoundError for 404, got %v", err)
	}
}
