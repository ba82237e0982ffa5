// Package twitter is a small REST client for the Twitter API.
//
// User-context calls (posting, media upload, home timeline) are signed with
// OAuth 1.0a through NewUserClient. Search can use the app-only bearer token
// through NewAppClient. Responses from the v1.1 and v2 APIs are normalized
// into Tweet values, and error statuses become *errors.Error values with
// RetryAfter populated from the rate limit headers.
package twitter
