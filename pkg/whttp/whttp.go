package whttp

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Body    string
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
	Headers        http.Header
}

// NewClient builds the shared HTTP client. Retries are disabled: every
// network call gets exactly one attempt, and the next scheduled run is the
// retry mechanism.
func NewClient(timeout time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	return rc.StandardClient()
}

// SendHTTPRequest performs one request and slurps the response body. If the
// body is an HTML page (vendor APIs serve HTML error pages on auth and
// maintenance failures) the <title> is captured for log context.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *http.Client) (*WHTTPRes, error) {
	var bodyReader io.Reader
	if wReq.Body != "" {
		bodyReader = strings.NewReader(wReq.Body)
	}

	req, err := http.NewRequestWithContext(ctx, wReq.Method, wReq.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "seatsweep")
	req.Header.Set("Accept", "application/json")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
		Headers:    resp.Header,
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if title, ok := getHTMLTitle(wRes.BodyString); ok {
			wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
		}
	}

	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)
	return wRes, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}
