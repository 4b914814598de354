package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/itinfra/seatsweep/pkg/whttp"
)

const slackAPIBase = "https://slack.com/api"

// SlackClient implements ChatClient against the Slack Web API. Calls are
// paced with a rate limiter: Slack's Tier 2/3 Web API methods allow roughly
// one call per second sustained, and a sweep can emit dozens of lookups and
// DMs back to back.
type SlackClient struct {
	token   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewSlackClient builds a Slack client with the given bot token.
func NewSlackClient(token string) *SlackClient {
	return &SlackClient{
		token:   token,
		baseURL: slackAPIBase,
		client:  whttp.NewClient(15 * time.Second),
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// SetBaseURL points the client at a different API host. Used by tests.
func (c *SlackClient) SetBaseURL(u string) { c.baseURL = u }

func (c *SlackClient) call(ctx context.Context, req *whttp.WHTTPReq) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	res, err := whttp.SendHTTPRequest(ctx, req, c.client)
	if err != nil {
		return "", err
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("slack returned status %d", res.StatusCode)
	}
	return res.BodyString, nil
}

// LookupHandle resolves an email to a Slack user ID via users.lookupByEmail.
func (c *SlackClient) LookupHandle(ctx context.Context, email string) (string, error) {
	body, err := c.call(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    c.baseURL + "/users.lookupByEmail?email=" + url.QueryEscape(email),
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.token},
		},
	})
	if err != nil {
		return "", err
	}

	if !gjson.Get(body, "ok").Bool() {
		slackErr := gjson.Get(body, "error").Str
		if slackErr == "users_not_found" {
			return "", ErrHandleNotFound
		}
		return "", fmt.Errorf("users.lookupByEmail: %s", slackErr)
	}
	return gjson.Get(body, "user.id").Str, nil
}

// postMessage sends to chat.postMessage; channel is either a conversation ID,
// a user ID (Slack opens the DM implicitly), or a #channel name.
func (c *SlackClient) postMessage(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    text,
	})
	if err != nil {
		return err
	}

	body, err := c.call(ctx, &whttp.WHTTPReq{
		Method: "POST",
		URL:    c.baseURL + "/chat.postMessage",
		Body:   string(payload),
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.token},
			{Name: "Content-Type", Value: "application/json; charset=utf-8"},
		},
	})
	if err != nil {
		return err
	}

	if !gjson.Get(body, "ok").Bool() {
		return fmt.Errorf("chat.postMessage: %s", gjson.Get(body, "error").Str)
	}
	return nil
}

func (c *SlackClient) SendDirectMessage(ctx context.Context, handle, text string) error {
	return c.postMessage(ctx, handle, text)
}

func (c *SlackClient) SendChannelMessage(ctx context.Context, recipient, text string) error {
	return c.postMessage(ctx, recipient, text)
}
