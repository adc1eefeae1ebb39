package followapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tcg-hq/followers/internal/domain"
	"github.com/tcg-hq/followers/pkg/cookies"
	"github.com/tcg-hq/followers/pkg/httpclient"
)

const (
	// DefaultTimeout bounds every request when no other timeout is configured.
	DefaultTimeout = 10 * time.Second

	followPath      = "/follow"
	csrfHeader      = "X-CSRF-Token"
	cookieHeader    = "Cookie"
	requestedWith   = "X-Requested-With"
	xmlHTTPRequest  = "XMLHttpRequest"
	followIDParam   = "follow_id"
	maxMessageBytes = 512
)

// Client talks to the follow endpoint of one plugin installation.
type Client struct {
	http     httpclient.Client
	endpoint string
	timeout  time.Duration
	headers  map[string]string
	cookies  cookies.Source
	jar      http.CookieJar
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(c httpclient.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout; non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithHeader adds a header to every request, e.g. the user id header when
// talking to the endpoint without a proxy in front of it.
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			return
		}
		if cl.headers == nil {
			cl.headers = make(map[string]string)
		}
		cl.headers[key] = value
	}
}

// WithCookies forwards the session cookies from src on every request.
func WithCookies(src cookies.Source) Option {
	return func(cl *Client) { cl.cookies = src }
}

// WithCookieJar lets the default transport keep the cookies the endpoint sets
// and send them back. Ignored when WithHTTPClient supplies the transport.
func WithCookieJar(jar http.CookieJar) Option {
	return func(cl *Client) { cl.jar = jar }
}

// New builds a client for serviceURL, the plugin's route prefix
// (see siteconfig.ServiceURL).
func New(serviceURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(serviceURL, "/") + followPath,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(c.timeout, httpclient.WithCookieJar(c.jar))
	}
	return c
}

// Endpoint returns the URL every call is issued against.
func (c *Client) Endpoint() string { return c.endpoint }

// FetchFollowedIDs returns the ids the current actor follows.
func (c *Client) FetchFollowedIDs(ctx context.Context) (domain.RelationshipSet, error) {
	resp, err := c.do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     c.endpoint,
		Headers: map[string]string{requestedWith: xmlHTTPRequest},
	})
	if err != nil {
		return nil, err
	}
	if !httpclient.IsSuccess(resp.StatusCode()) {
		return nil, serviceError(resp)
	}

	var ids []string
	if body := resp.Body(); len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &ids); err != nil {
			return nil, &ServiceError{StatusCode: resp.StatusCode(), Message: "decode followed ids: " + err.Error()}
		}
	}
	return domain.NewRelationshipSet(ids...), nil
}

// Follow asks the endpoint to add targetID to the actor's follows.
func (c *Client) Follow(ctx context.Context, token, targetID string) domain.MutationOutcome {
	return c.mutate(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.endpoint,
		Headers: mutationHeaders(token),
		Body:    domain.FollowRequest{FollowID: targetID},
	})
}

// Unfollow asks the endpoint to remove targetID from the actor's follows.
func (c *Client) Unfollow(ctx context.Context, token, targetID string) domain.MutationOutcome {
	return c.mutate(ctx, httpclient.Request{
		Method:  http.MethodDelete,
		URL:     c.endpoint,
		Query:   map[string]string{followIDParam: targetID},
		Headers: mutationHeaders(token),
	})
}

func (c *Client) mutate(ctx context.Context, req httpclient.Request) domain.MutationOutcome {
	resp, err := c.do(ctx, req)
	if err != nil {
		return domain.Failure(failureReason(err), err)
	}
	if !httpclient.IsSuccess(resp.StatusCode()) {
		svcErr := serviceError(resp)
		return domain.Failure(svcErr.Message, svcErr)
	}
	return domain.Success()
}

// do runs req under the client's timeout and classifies transport errors.
func (c *Client) do(ctx context.Context, req httpclient.Request) (httpclient.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req.Headers = c.withDefaultHeaders(req.Headers)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Err: err}
		}
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}

// withDefaultHeaders layers per-request headers over the client's defaults.
func (c *Client) withDefaultHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(c.headers)+len(h)+1)
	for k, v := range c.headers {
		out[k] = v
	}
	if c.cookies != nil {
		if raw, err := c.cookies.CookieString(); err == nil && strings.TrimSpace(raw) != "" {
			out[cookieHeader] = strings.TrimSpace(raw)
		}
	}
	for k, v := range h {
		out[k] = v
	}
	return out
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failureReason(err error) string {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return TimeoutReason
	}
	return err.Error()
}

func mutationHeaders(token string) map[string]string {
	// An absent token is still sent; the endpoint decides whether to reject it.
	return map[string]string{
		csrfHeader:    token,
		requestedWith: xmlHTTPRequest,
	}
}

func serviceError(resp httpclient.Response) *ServiceError {
	return &ServiceError{StatusCode: resp.StatusCode(), Message: extractMessage(resp.Body())}
}

// extractMessage reads the `message` field of an error body.
func extractMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return FallbackMessage
	}
	msg := strings.TrimSpace(payload.Message)
	if msg == "" {
		return FallbackMessage
	}
	return truncateMessage(msg, maxMessageBytes)
}

// truncateMessage cuts msg to at most limit bytes without splitting a rune.
func truncateMessage(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
