package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dev-hans-programmer/postman-clone/internal/errdef"
	"github.com/dev-hans-programmer/postman-clone/internal/model"
	"github.com/dev-hans-programmer/postman-clone/internal/vars"
)

const tracerName = "postman-clone/httpclient"

type Options struct {
	Timeout      time.Duration
	VerifySSL    bool
	MaxRedirects int
	ProxyURL     string
}

// DefaultOptions mirrors the documented network defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:      30 * time.Second,
		VerifySSL:    true,
		MaxRedirects: 10,
	}
}

// Client executes requests. Safe for concurrent use: per-request state lives
// on the stack and the shared cookie jar is internally synchronized.
type Client struct {
	jar http.CookieJar
}

func NewClient() *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{jar: jar}
}

// Execute performs one HTTP call synchronously. Transport failures never
// surface as Go errors; they come back as a Response with a classified Error
// message and the elapsed time up to the failure point; callers inspect
// Response.Error to tell the cases apart.
func (c *Client) Execute(ctx context.Context, req *model.Request, resolver *vars.Resolver, opts Options) *model.Response {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "http.request")
	defer span.End()

	start := time.Now()
	resp := c.execute(ctx, req, resolver, opts, start)

	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL),
		attribute.Int("http.status_code", resp.StatusCode),
	)
	if resp.Error != "" {
		span.SetStatus(codes.Error, resp.Error)
	}
	return resp
}

// ExecuteAsync dispatches the call on its own goroutine and delivers the
// Response to the callback exactly once. There is no ordering guarantee
// between concurrent dispatches.
func (c *Client) ExecuteAsync(ctx context.Context, req *model.Request, resolver *vars.Resolver, opts Options, callback func(*model.Response)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				callback(model.ErrorResponse(fmt.Sprintf("Unexpected error: %v", r), 0))
			}
		}()
		callback(c.Execute(ctx, req, resolver, opts))
	}()
}

func (c *Client) execute(ctx context.Context, req *model.Request, resolver *vars.Resolver, opts Options, start time.Time) *model.Response {
	httpReq, err := c.prepareRequest(ctx, req, resolver)
	if err != nil {
		return model.ErrorResponse(classify(err), elapsedMS(start))
	}

	client := c.buildHTTPClient(opts)
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return model.ErrorResponse(classify(err), elapsedMS(start))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return model.ErrorResponse(classify(err), elapsedMS(start))
	}

	resp := model.NewResponse()
	resp.StatusCode = httpResp.StatusCode
	resp.StatusText = statusText(httpResp)
	resp.Headers = flattenHeaders(httpResp.Header)
	resp.Body = string(body)
	resp.Size = len(body)
	resp.ResponseTime = elapsedMS(start)
	return resp
}

// prepareRequest applies variable substitution to the URL, effective header
// values, query-parameter values, and string body, then resolves auth. Header
// values are substituted exactly once; auth_data values are used verbatim.
func (c *Client) prepareRequest(ctx context.Context, req *model.Request, resolver *vars.Resolver) (*http.Request, error) {
	expandedURL := resolver.Expand(req.URL)

	var bodyReader io.Reader
	if req.Body != "" {
		bodyReader = strings.NewReader(resolver.Expand(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, expandedURL, bodyReader)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "build request")
	}

	for name, value := range req.EffectiveHeaders() {
		httpReq.Header.Set(name, resolver.Expand(value))
	}

	query := httpReq.URL.Query()
	for key, value := range req.Params {
		query.Set(key, resolver.Expand(value))
	}
	if req.AuthType == model.AuthAPIKey && req.AuthData["location"] == "query" {
		key := req.AuthData["key"]
		value := req.AuthData["value"]
		if key != "" && value != "" {
			query.Set(key, value)
		}
	}
	httpReq.URL.RawQuery = query.Encode()

	if req.AuthType == model.AuthBasic {
		username := req.AuthData["username"]
		password := req.AuthData["password"]
		if username != "" && password != "" {
			httpReq.SetBasicAuth(username, password)
		}
	}

	return httpReq, nil
}

func (c *Client) buildHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if opts.ProxyURL != "" {
		if proxyURL, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	if !opts.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // nolint:gosec
	}

	client := &http.Client{Transport: transport, Jar: c.jar}
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultOptions().MaxRedirects
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return client
}

// classify maps a transport failure to one of the documented human-readable
// categories: timeout, connection failure, generic request error, unexpected.
func classify(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "Request timed out"
	case isConnectionError(err):
		return fmt.Sprintf("Connection error: %v", err)
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) || errdef.Is(err, errdef.CodeHTTP) {
			return fmt.Sprintf("Request error: %v", err)
		}
		return fmt.Sprintf("Unexpected error: %v", err)
	}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// statusText recovers the reason phrase from the combined status line.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// flattenHeaders collapses multi-valued headers the way the persisted wire
// format expects them: one comma-joined string per header name.
func flattenHeaders(header http.Header) map[string]string {
	flattened := make(map[string]string, len(header))
	for name, values := range header {
		flattened[name] = strings.Join(values, ", ")
	}
	return flattened
}
