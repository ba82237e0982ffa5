package twitter

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the REST API host
	DefaultBaseURL = "https://api.twitter.com"

	// DefaultUploadURL is the media upload host
	DefaultUploadURL = "https://upload.twitter.com"

	UpdateStatusPath      = "/1.1/statuses/update.json"
	UploadMediaPath       = "/1.1/media/upload.json"
	HomeTimelinePath      = "/1.1/statuses/home_timeline.json"
	VerifyCredentialsPath = "/1.1/account/verify_credentials.json"
	SearchRecentPath      = "/2/tweets/search/recent"
	SearchAllPath         = "/2/tweets/search/all"

	// MaxTimelineCount is the largest page home_timeline returns
	MaxTimelineCount = 200

	// MinSearchResults and MaxSearchResults bound max_results on recent search
	MinSearchResults = 10
	MaxSearchResults = 100

	// MaxArchiveSearchResults bounds max_results on full-archive search
	MaxArchiveSearchResults = 500

	// MaxStatusLength is the character limit of a status
	MaxStatusLength = 280

	searchTweetFields = "author_id,created_at,entities,geo,lang,referenced_tweets"
	searchUserFields  = "location,name,username"
	searchPlaceFields = "country_code,full_name,id,name"
	searchExpansions  = "author_id,geo.place_id"
)

// SearchPath returns the path for the given search endpoint name
func SearchPath(endpoint string) (string, error) {
	switch endpoint {
	case "", "recent":
		return SearchRecentPath, nil
	case "all":
		return SearchAllPath, nil
	default:
		return "", fmt.Errorf("unknown search endpoint: %q", endpoint)
	}
}

// ClampSearchResults keeps max_results within the endpoint's bounds
func ClampSearchResults(endpoint string, n int) int {
	upper := MaxSearchResults
	if endpoint == "all" {
		upper = MaxArchiveSearchResults
	}
	switch {
	case n <= 0:
		return upper
	case n < MinSearchResults:
		return MinSearchResults
	case n > upper:
		return upper
	default:
		return n
	}
}

func searchQuery(p SearchParams) map[string]string {
	q := map[string]string{
		"query":        p.Query,
		"max_results":  strconv.Itoa(ClampSearchResults(p.Endpoint, p.MaxResults)),
		"expansions":   searchExpansions,
		"tweet.fields": searchTweetFields,
		"user.fields":  searchUserFields,
		"place.fields": searchPlaceFields,
	}
	if p.NextToken != "" {
		q["next_token"] = p.NextToken
	}
	return q
}

func timelineQuery(p TimelineParams) map[string]string {
	count := p.Count
	if count <= 0 || count > MaxTimelineCount {
		count = MaxTimelineCount
	}
	q := map[string]string{
		"count":           strconv.Itoa(count),
		"exclude_replies": strconv.FormatBool(p.ExcludeReplies),
		"tweet_mode":      "extended",
	}
	if p.MaxID != "" {
		q["max_id"] = p.MaxID
	}
	if p.SinceID != "" {
		q["since_id"] = p.SinceID
	}
	return q
}

func statusForm(u StatusUpdate) map[string]string {
	form := map[string]string{"status": u.Status}
	if u.InReplyToStatusID != "" {
		form["in_reply_to_status_id"] = u.InReplyToStatusID
	}
	if len(u.MediaIDs) > 0 {
		form["media_ids"] = strings.Join(u.MediaIDs, ",")
	}
	return form
}

// PrecedingID returns id-1, used as max_id so the next page starts below id
func PrecedingID(id string) (string, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid tweet id %q: %w", id, err)
	}
	if n == 0 {
		return "", fmt.Errorf("invalid tweet id %q: no preceding id", id)
	}
	return strconv.FormatUint(n-1, 10), nil
}

// TweetURL constructs the public URL of a tweet
func TweetURL(screenName, id string) string {
	if id == "" {
		return ""
	}
	if screenName == "" {
		screenName = "i/web"
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", NormalizeHandle(screenName), id)
}

// IsValidHandle checks a screen name: 1-15 letters, digits or underscores
func IsValidHandle(handle string) bool {
	handle = NormalizeHandle(handle)
	if handle == "" || len(handle) > 15 {
		return false
	}
	for _, char := range handle {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}

// NormalizeHandle strips a leading @ and surrounding whitespace
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	return strings.TrimRight(handle, "/ ")
}
