package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/common/resilience"
	"github.com/AlibekovAA/givematch-portal/internal/observability/metrics"
)

const (
	ResourceUsers       = "users"
	ResourceDonations   = "donations"
	ResourceCompanies   = "companies"
	ResourceCampaigns   = "campaigns"
	ResourceNonprofits  = "nonprofits"
	ResourceLeaderboard = "leaderboard"
)

var resourcePaths = map[string]string{
	ResourceUsers:       "/api/users/",
	ResourceDonations:   "/api/donations/",
	ResourceCompanies:   "/api/companies/",
	ResourceCampaigns:   "/api/campaigns/",
	ResourceNonprofits:  "/api/nonprofits/",
	ResourceLeaderboard: "/api/leaderboard/",
}

func Resources() []string {
	return []string{
		ResourceUsers,
		ResourceDonations,
		ResourceCompanies,
		ResourceCampaigns,
		ResourceNonprofits,
		ResourceLeaderboard,
	}
}

func IsResource(name string) bool {
	_, ok := resourcePaths[name]
	return ok
}

// StatusError is a non-2xx answer from the upstream API.
type StatusError struct {
	Resource   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d", e.Resource, e.StatusCode)
}

func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type tokenKey struct{}

// ContextWithToken attaches the caller's session token; requests made with
// the returned context forward it as a bearer Authorization header.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	maxBody    int64
	log        *logger.Logger
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithBreaker(cb *resilience.CircuitBreaker) ClientOption {
	return func(c *Client) {
		c.breaker = cb
	}
}

func NewClient(baseURL string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: constants.DefaultUpstreamTimeout,
		},
		maxBody: constants.UpstreamMaxBodyBytes,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsClientError reports whether err is a 4xx answer. Those do not count as
// upstream outages.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.ClientError()
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	return list[User](ctx, c, ResourceUsers)
}

func (c *Client) Donations(ctx context.Context) ([]Donation, error) {
	return list[Donation](ctx, c, ResourceDonations)
}

func (c *Client) Companies(ctx context.Context) ([]Company, error) {
	return list[Company](ctx, c, ResourceCompanies)
}

func (c *Client) Campaigns(ctx context.Context) ([]Campaign, error) {
	return list[Campaign](ctx, c, ResourceCampaigns)
}

func (c *Client) Nonprofits(ctx context.Context) ([]Nonprofit, error) {
	return list[Nonprofit](ctx, c, ResourceNonprofits)
}

func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	return list[LeaderboardEntry](ctx, c, ResourceLeaderboard)
}

// Fetch returns the normalised list for any known resource.
func (c *Client) Fetch(ctx context.Context, resource string) (any, error) {
	switch resource {
	case ResourceUsers:
		return c.Users(ctx)
	case ResourceDonations:
		return c.Donations(ctx)
	case ResourceCompanies:
		return c.Companies(ctx)
	case ResourceCampaigns:
		return c.Campaigns(ctx)
	case ResourceNonprofits:
		return c.Nonprofits(ctx)
	case ResourceLeaderboard:
		return c.Leaderboard(ctx)
	default:
		return nil, commonerrors.ErrUnknownResource.WithCause(fmt.Errorf("%q", resource))
	}
}

func list[T any](ctx context.Context, c *Client, resource string) ([]T, error) {
	var items []T
	err := c.call(ctx, resource, func(body []byte) error {
		decoded, err := decodeList[T](body)
		if err != nil {
			return err
		}
		items = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) call(ctx context.Context, resource string, decode func([]byte) error) error {
	op := func(ctx context.Context) error {
		body, err := c.get(ctx, resource)
		if err != nil {
			return err
		}
		return decode(body)
	}
	if c.breaker == nil {
		return op(ctx)
	}
	return c.breaker.Call(ctx, op)
}

func (c *Client) get(ctx context.Context, resource string) ([]byte, error) {
	path, ok := resourcePaths[resource]
	if !ok {
		return nil, commonerrors.ErrUnknownResource.WithCause(fmt.Errorf("%q", resource))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDurationSeconds.WithLabelValues(resource).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(resource, "error").Inc()
		c.log.Warnf("upstream request failed resource=%s: %v", resource, err)
		return nil, commonerrors.ErrUpstreamUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestsTotal.WithLabelValues(resource, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, commonerrors.ErrUpstreamUnavailable.WithCause(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Resource: resource, StatusCode: resp.StatusCode}
		if statusErr.ClientError() {
			return nil, statusErr
		}
		return nil, commonerrors.ErrUpstreamUnavailable.WithCause(statusErr)
	}

	return body, nil
}
