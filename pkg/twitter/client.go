package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	errs "tweetutil/pkg/errors"
	"tweetutil/pkg/logger"
)

// Credentials are the OAuth 1.0a user-context keys
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Client represents a Twitter API client
type Client struct {
	http      *resty.Client
	baseURL   string
	uploadURL string
	logger    logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the REST API host
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUploadURL overrides the media upload host
func WithUploadURL(u string) Option {
	return func(c *Client) { c.uploadURL = u }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// NewClient creates a client on top of an already authenticated http.Client
func NewClient(hc *http.Client, opts ...Option) *Client {
	if hc == nil {
		hc = &http.Client{}
	}

	c := &Client{
		http:      resty.NewWithClient(hc),
		baseURL:   DefaultBaseURL,
		uploadURL: DefaultUploadURL,
		logger:    logger.GetLogger(),
	}
	c.http.SetHeader("User-Agent", "tweetutil/1.0")
	c.http.SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewUserClient signs every request with OAuth 1.0a user credentials.
// Posting, media upload and the home timeline need user context.
func NewUserClient(ctx context.Context, creds Credentials, opts ...Option) *Client {
	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	return NewClient(cfg.Client(ctx, token), opts...)
}

// NewAppClient authenticates with an app-only bearer token
func NewAppClient(ctx context.Context, bearerToken string, opts ...Option) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearerToken, TokenType: "Bearer"})
	return NewClient(oauth2.NewClient(ctx, src), opts...)
}

// UpdateStatus posts a new status and returns the created tweet
func (c *Client) UpdateStatus(ctx context.Context, u StatusUpdate) (*Tweet, error) {
	c.logger.DebugWithFields("updating status", map[string]interface{}{
		"length":      len([]rune(u.Status)),
		"in_reply_to": u.InReplyToStatusID,
		"media":       len(u.MediaIDs),
	})

	var raw v1Tweet
	req := c.http.R().SetFormData(statusForm(u))
	if err := c.do(ctx, req, http.MethodPost, c.baseURL+UpdateStatusPath, &raw); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	tweet := raw.normalize()
	return &tweet, nil
}

// UploadMedia uploads a single image in one multipart request
func (c *Client) UploadMedia(ctx context.Context, filename string, r io.Reader) (*Media, error) {
	c.logger.DebugWithFields("uploading media", map[string]interface{}{
		"file": filename,
	})

	var raw v1Media
	req := c.http.R().SetFileReader("media", filename, r)
	if err := c.do(ctx, req, http.MethodPost, c.uploadURL+UploadMediaPath, &raw); err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	if raw.MediaIDString == "" {
		return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, "upload response has no media id")
	}

	media := &Media{ID: raw.MediaIDString, Size: raw.Size}
	if raw.Image != nil {
		media.Type = raw.Image.ImageType
	}
	return media, nil
}

// HomeTimeline fetches one page of the authenticated user's home timeline
func (c *Client) HomeTimeline(ctx context.Context, p TimelineParams) ([]Tweet, error) {
	var raw []v1Tweet
	req := c.http.R().SetQueryParams(timelineQuery(p))
	if err := c.do(ctx, req, http.MethodGet, c.baseURL+HomeTimelinePath, &raw); err != nil {
		return nil, fmt.Errorf("home timeline: %w", err)
	}

	tweets := make([]Tweet, 0, len(raw))
	for i := range raw {
		tweets = append(tweets, raw[i].normalize())
	}
	return tweets, nil
}

// Search fetches one page from the recent or full-archive search endpoint
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchPage, error) {
	path, err := SearchPath(p.Endpoint)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeInvalidRequest, 0, "%v", err)
	}

	var raw searchResponse
	req := c.http.R().SetQueryParams(searchQuery(p))
	if err := c.do(ctx, req, http.MethodGet, c.baseURL+path, &raw); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return raw.page(), nil
}

// SearchRecent fetches one page from the recent search endpoint
func (c *Client) SearchRecent(ctx context.Context, p SearchParams) (*SearchPage, error) {
	p.Endpoint = "recent"
	return c.Search(ctx, p)
}

// VerifyCredentials returns the user the client is authenticated as
func (c *Client) VerifyCredentials(ctx context.Context) (*User, error) {
	var raw v1User
	req := c.http.R().SetQueryParam("skip_status", "true")
	if err := c.do(ctx, req, http.MethodGet, c.baseURL+VerifyCredentialsPath, &raw); err != nil {
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	return raw.normalize(), nil
}

// do executes req, maps failures to typed errors and decodes the body into target
func (c *Client) do(ctx context.Context, req *resty.Request, method, url string, target interface{}) error {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": method,
		"url":    url,
	})

	resp, err := req.SetContext(ctx).Execute(method, url)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"url":      url,
		"status":   resp.StatusCode(),
		"duration": duration,
	})

	if apiErr := c.checkResponse(resp); apiErr != nil {
		return apiErr
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		body := string(resp.Body())
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode(),
			"error":        err.Error(),
			"body_preview": body,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode(), "failed to parse JSON: %v", err)
	}
	return nil
}

// checkResponse converts an error status into a typed error
func (c *Client) checkResponse(resp *resty.Response) error {
	var body apiErrorBody
	_ = json.Unmarshal(resp.Body(), &body)

	apiErr := errs.FromStatus(resp.StatusCode(), body.message())
	if apiErr == nil {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode(),
		"url":    resp.Request.URL,
		"type":   string(apiErr.Type),
	}
	if apiErr.Type == errs.ErrorTypeRateLimit {
		apiErr.RetryAfter = retryAfter(resp.Header(), time.Now())
		fields["retry_after"] = apiErr.RetryAfter
	}

	if apiErr.Type == errs.ErrorTypeServerError {
		c.logger.ErrorWithFields("server error", fields)
	} else {
		c.logger.WarnWithFields("API error", fields)
	}
	return apiErr
}

// retryAfter reads Retry-After seconds or the x-rate-limit-reset epoch
func retryAfter(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := h.Get("X-Rate-Limit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}

// IsAuthError reports whether err is a rejected-credentials error
func IsAuthError(err error) bool {
	var apiErr *errs.Error
	return errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeAuth
}
