package client

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/coget/coget/pkg/logging"
	"github.com/coget/coget/pkg/version"
)

const (
	// These are boring defaults for the transport-level retry loop. They
	// only apply to requests that die before a response arrives; once the
	// server answers, policy belongs to the caller.
	defaultTransportRetries = 2
	defaultConnectTimeout   = 5 * time.Second

	retryMinWait = 850 * time.Millisecond
	retryMaxWait = 1250 * time.Millisecond

	// Additional wait time buckets for the backoff function, in milliseconds
	retrySleepJitter = 500

	// maxRedirects caps how many hops a single request may follow before
	// the transport gives up on it.
	maxRedirects = 50
)

// HTTPClient is the transport used for both the size probe and ranged part
// requests. It wraps a retryable client so that connection-level failures
// are retried with jittered backoff, while HTTP status handling is left
// entirely to the caller.
type HTTPClient struct {
	*http.Client
	transport *http.Transport
	username  string
	password  string
}

// Options configures an HTTPClient.
type Options struct {
	// TransportRetries is the number of times a request is re-issued when
	// it fails before producing a response (DNS errors, refused
	// connections, resets). Zero means the default; responses are never
	// retried at this layer regardless of status code.
	TransportRetries int
	// ConnectTimeout bounds dial time for a single connection attempt.
	ConnectTimeout time.Duration
	// Timeout bounds a whole request, headers through body. Zero means no
	// limit.
	Timeout time.Duration
	// Username and Password, when non-empty, are sent as basic auth on
	// every request.
	Username string
	Password string
}

// NewHTTPClient builds the shared client used by every worker in a run.
func NewHTTPClient(opts Options) *HTTPClient {
	transportRetries := opts.TransportRetries
	if transportRetries <= 0 {
		transportRetries = defaultTransportRetries
	}
	connTimeout := opts.ConnectTimeout
	if connTimeout <= 0 {
		connTimeout = defaultConnectTimeout
	}

	dialer := &net.Dialer{
		Timeout:   connTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	retryClient := &retryablehttp.Client{
		HTTPClient: &http.Client{
			Transport:     &UserAgentTransport{Transport: transport},
			CheckRedirect: checkRedirectFunc,
			Timeout:       opts.Timeout,
		},
		Logger:       nil,
		RetryWaitMin: retryMinWait,
		RetryWaitMax: retryMaxWait,
		RetryMax:     transportRetries,
		CheckRetry:   transportRetryPolicy,
		Backoff:      backoffPolicy,
	}

	return &HTTPClient{
		Client:    retryClient.StandardClient(),
		transport: transport,
		username:  opts.Username,
		password:  opts.Password,
	}
}

// ProbeSize issues a HEAD request and returns the advertised length of the
// remote file in bytes.
func (c *HTTPClient) ProbeSize(ctx context.Context, url string) (int64, error) {
	logger := logging.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create HEAD request for %s: %w", url, err)
	}
	c.setAuth(req)
	resp, err := c.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("failed to probe %s: %w", url, HTTPStatusError{StatusCode: resp.StatusCode})
	}
	trueURL := resp.Request.URL.String()
	if trueURL != url {
		logger.Debug().Str("url", url).Str("redirect_url", trueURL).Msg("Redirect")
	}
	size := resp.ContentLength
	if size < 0 {
		return 0, fmt.Errorf("remote server did not advertise a size for %s", trueURL)
	}
	if size == 0 {
		return 0, fmt.Errorf("remote file %s is empty", trueURL)
	}
	return size, nil
}

// FetchRange issues a ranged GET for bytes [start, end] and streams the
// response body into sink. The returned status code is valid whenever err
// is nil or an HTTPStatusError; for a status >= 400 the body is discarded
// and nothing is written to sink.
func (c *HTTPClient) FetchRange(ctx context.Context, url string, start, end int64, sink io.Writer) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	c.setAuth(req)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
	resp, err := c.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, HTTPStatusError{StatusCode: resp.StatusCode}
	}
	if _, err := io.Copy(sink, resp.Body); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to stream body from %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

// Close releases idle connections held by the underlying transport. Call it
// once all workers have finished.
func (c *HTTPClient) Close() {
	c.transport.CloseIdleConnections()
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// transportRetryPolicy retries connection-level failures only. Any response
// at all, success or error status, ends the transport retry loop so the
// caller's own attempt accounting stays exact.
func transportRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func backoffPolicy(min time.Duration, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	duration := retryablehttp.LinearJitterBackoff(min, max, attemptNum, resp)
	return duration + time.Duration(rand.Intn(retrySleepJitter))*time.Millisecond
}

func checkRedirectFunc(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		// This wording is load bearing, the retry policy greps for it to
		// classify the failure as unrecoverable.
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	logger := logging.GetLogger()
	logger.Trace().
		Str("redirect_url", req.URL.String()).
		Str("url", via[0].URL.String()).
		Int("hop", len(via)).
		Msg("Redirect")
	return nil
}

// UserAgentTransport stamps every outgoing request with the coget version
// string.
type UserAgentTransport struct {
	Transport http.RoundTripper
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", "coget/"+version.GetVersion())
	return t.Transport.RoundTrip(clone)
}
