package twitter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "tweetutil/pkg/errors"
	"tweetutil/pkg/logger"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	client := NewClient(srv.Client(), WithBaseURL(srv.URL), WithUploadURL(srv.URL), WithLogger(log))
	return client, log
}

const searchBody = `{
  "data": [
    {"id": "1002", "text": "Bagels in #NewYork", "author_id": "u1", "created_at": "2024-03-01T12:00:00.000Z",
     "entities": {"hashtags": [{"tag": "NewYork"}]}, "geo": {"place_id": "p1"}},
    {"id": "1001", "text": "reply", "author_id": "u2",
     "referenced_tweets": [{"type": "replied_to", "id": "900"}]}
  ],
  "includes": {
    "users": [
      {"id": "u1", "name": "Ann", "username": "ann", "location": "Brooklyn, NY"},
      {"id": "u2", "name": "Bob", "username": "bob"}
    ],
    "places": [{"id": "p1", "name": "Manhattan", "full_name": "Manhattan, NY", "country_code": "US"}]
  },
  "meta": {"newest_id": "1002", "oldest_id": "1001", "result_count": 2, "next_token": "tok2"}
}`

func TestSearchRecent(t *testing.T) {
	var got *http.Request
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, searchBody)
	})

	page, err := client.SearchRecent(context.Background(), SearchParams{Query: "bagels", MaxResults: 5, NextToken: "tok1"})
	require.NoError(t, err)

	assert.Equal(t, SearchRecentPath, got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "bagels", q.Get("query"))
	assert.Equal(t, "10", q.Get("max_results"))
	assert.Equal(t, "tok1", q.Get("next_token"))
	assert.Equal(t, "author_id,geo.place_id", q.Get("expansions"))

	require.Len(t, page.Tweets, 2)
	assert.Equal(t, "tok2", page.NextToken)
	assert.Equal(t, 2, page.ResultCount)

	first := page.Tweets[0]
	assert.Equal(t, "1002", first.ID)
	assert.Equal(t, []string{"NewYork"}, first.Hashtags)
	require.NotNil(t, first.Author)
	assert.Equal(t, "Brooklyn, NY", first.Author.Location)
	require.NotNil(t, first.Place)
	assert.Equal(t, "Manhattan, NY", first.Place.FullName)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), first.CreatedAt)

	assert.Nil(t, page.Tweets[1].Place)
	assert.Equal(t, "900", page.Tweets[1].InReplyToID)
}

func TestSearchFullArchive(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SearchAllPath, r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("max_results"))
		io.WriteString(w, `{"meta": {"result_count": 0}}`)
	})

	page, err := client.Search(context.Background(), SearchParams{Query: "x", MaxResults: 1000, Endpoint: "all"})
	require.NoError(t, err)
	assert.Empty(t, page.Tweets)
	assert.Empty(t, page.NextToken)
}

func TestSearchUnknownEndpoint(t *testing.T) {
	client := NewClient(nil, WithLogger(logger.NewNopLogger()))
	_, err := client.Search(context.Background(), SearchParams{Query: "x", Endpoint: "fullarchive"})

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeInvalidRequest, apiErr.Type)
}

func TestUpdateStatus(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, UpdateStatusPath, r.URL.Path)
		assert.Equal(t, "@bob thanks", r.PostForm.Get("status"))
		assert.Equal(t, "900", r.PostForm.Get("in_reply_to_status_id"))
		assert.Equal(t, "11,12", r.PostForm.Get("media_ids"))
		io.WriteString(w, `{"id_str": "1234", "text": "@bob thanks", "in_reply_to_status_id_str": "900",
			"created_at": "Fri Mar 01 12:00:00 +0000 2024", "user": {"id_str": "u9", "screen_name": "me"}}`)
	})

	tweet, err := client.UpdateStatus(context.Background(), StatusUpdate{
		Status:            "@bob thanks",
		InReplyToStatusID: "900",
		MediaIDs:          []string{"11", "12"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1234", tweet.ID)
	assert.Equal(t, "900", tweet.InReplyToID)
	assert.Equal(t, "u9", tweet.AuthorID)
	assert.Equal(t, 2024, tweet.CreatedAt.Year())
}

func TestUploadMedia(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadMediaPath, r.URL.Path)
		file, header, err := r.FormFile("media")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "chart.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		io.WriteString(w, `{"media_id": 710511363345354753, "media_id_string": "710511363345354753", "size": 7, "image": {"image_type": "image/png"}}`)
	})

	media, err := client.UploadMedia(context.Background(), "chart.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "710511363345354753", media.ID)
	assert.Equal(t, "image/png", media.Type)
}

func TestUploadMediaWithoutID(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})

	_, err := client.UploadMedia(context.Background(), "a.png", strings.NewReader("x"))
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestHomeTimeline(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "200", q.Get("count"))
		assert.Equal(t, "true", q.Get("exclude_replies"))
		assert.Equal(t, "499", q.Get("max_id"))
		io.WriteString(w, `[
			{"id_str": "498", "full_text": "long text", "text": "short", "user": {"id_str": "1", "screen_name": "ann", "location": "Paris"},
			 "place": {"id": "p", "name": "Paris", "full_name": "Paris, France"}, "entities": {"hashtags": [{"text": "paris"}]}},
			{"id_str": "497", "text": "plain"}
		]`)
	})

	tweets, err := client.HomeTimeline(context.Background(), TimelineParams{Count: 500, MaxID: "499", ExcludeReplies: true})
	require.NoError(t, err)
	require.Len(t, tweets, 2)
	assert.Equal(t, "long text", tweets[0].Text)
	assert.Equal(t, "Paris, France", tweets[0].Place.FullName)
	assert.Equal(t, []string{"paris"}, tweets[0].Hashtags)
	assert.Equal(t, "plain", tweets[1].Text)
	assert.Nil(t, tweets[1].Author)
}

func TestVerifyCredentials(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, VerifyCredentialsPath, r.URL.Path)
		io.WriteString(w, `{"id_str": "42", "name": "Me", "screen_name": "me"}`)
	})

	user, err := client.VerifyCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me", user.ScreenName)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected errs.ErrorType
		message  string
	}{
		{"unauthorized", 401, `{"errors": [{"code": 32, "message": "Could not authenticate you."}]}`, errs.ErrorTypeAuth, "Could not authenticate you."},
		{"forbidden", 403, `{"title": "Forbidden", "detail": "You are not permitted."}`, errs.ErrorTypeAuth, "You are not permitted."},
		{"not found", 404, ``, errs.ErrorTypeNotFound, "Not Found"},
		{"bad request", 400, `{"title": "Invalid Request"}`, errs.ErrorTypeInvalidRequest, "Invalid Request"},
		{"server", 503, `{"errors": [{"message": "Over capacity"}]}`, errs.ErrorTypeServerError, "Over capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, log := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.VerifyCredentials(context.Background())
			var apiErr *errs.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.expected, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.NotEmpty(t, log.GetMessages())
		})
	}
}

func TestRateLimitHeaders(t *testing.T) {
	reset := time.Now().Add(90 * time.Second).Unix()
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"title": "Too Many Requests"}`)
	})

	_, err := client.SearchRecent(context.Background(), SearchParams{Query: "x"})
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeRateLimit, apiErr.Type)
	assert.InDelta(t, 90, apiErr.RetryAfter.Seconds(), 3)
	assert.True(t, apiErr.Retryable())
}

func TestRetryAfter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	h := http.Header{}
	assert.Zero(t, retryAfter(h, now))

	h.Set("X-Rate-Limit-Reset", "1700000030")
	assert.Equal(t, 30*time.Second, retryAfter(h, now))

	h.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, retryAfter(h, now))

	past := http.Header{}
	past.Set("X-Rate-Limit-Reset", "1600000000")
	assert.Zero(t, retryAfter(past, now))
}

func TestParsingError(t *testing.T) {
	client, log := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>not json</html>`)
	})

	_, err := client.SearchRecent(context.Background(), SearchParams{Query: "x"})
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
	assert.False(t, apiErr.Retryable())
	assert.True(t, log.HasMessage("failed to parse JSON response"))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(nil, WithBaseURL(url), WithLogger(logger.NewNopLogger()), WithTimeout(time.Second))
	_, err := client.VerifyCredentials(context.Background())

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNetwork, apiErr.Type)
}

func TestCancelledContext(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.VerifyCredentials(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserClientSignsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "OAuth "), auth)
		assert.Contains(t, auth, `oauth_consumer_key="ck"`)
		assert.Contains(t, auth, `oauth_token="at"`)
		assert.Contains(t, auth, `oauth_signature_method="HMAC-SHA1"`)
		io.WriteString(w, `{"id_str": "1", "screen_name": "me"}`)
	}))
	defer srv.Close()

	client := NewUserClient(context.Background(), Credentials{
		ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as",
	}, WithBaseURL(srv.URL), WithLogger(logger.NewNopLogger()))

	_, err := client.VerifyCredentials(context.Background())
	require.NoError(t, err)
}

func TestAppClientSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer app-token", r.Header.Get("Authorization"))
		io.WriteString(w, `{"meta": {"result_count": 0}}`)
	}))
	defer srv.Close()

	client := NewAppClient(context.Background(), "app-token", WithBaseURL(srv.URL), WithLogger(logger.NewNopLogger()))
	_, err := client.SearchRecent(context.Background(), SearchParams{Query: "x"})
	require.NoError(t, err)
}
