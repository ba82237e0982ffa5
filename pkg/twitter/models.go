package twitter

import (
	"strings"
	"time"
)

// Tweet is a post normalized from either API version
type Tweet struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	Lang        string    `json:"lang,omitempty"`
	AuthorID    string    `json:"author_id,omitempty"`
	Author      *User     `json:"author,omitempty"`
	Place       *Place    `json:"place,omitempty"`
	Hashtags    []string  `json:"hashtags,omitempty"`
	InReplyToID string    `json:"in_reply_to_id,omitempty"`
}

// User is a Twitter account
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	Location   string `json:"location,omitempty"`
}

// Place is a geo place attached to a tweet
type Place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	CountryCode string `json:"country_code,omitempty"`
}

// Media is an uploaded media object ready to be attached to a status
type Media struct {
	ID   string `json:"media_id_string"`
	Size int64  `json:"size"`
	Type string `json:"type,omitempty"`
}

// SearchPage is one page of search results
type SearchPage struct {
	Tweets      []Tweet
	NextToken   string
	ResultCount int
	NewestID    string
	OldestID    string
}

// StatusUpdate is the input for UpdateStatus
type StatusUpdate struct {
	Status            string
	InReplyToStatusID string
	MediaIDs          []string
}

// TimelineParams are the query options for HomeTimeline
type TimelineParams struct {
	Count          int
	MaxID          string
	SinceID        string
	ExcludeReplies bool
}

// SearchParams are the query options for Search
type SearchParams struct {
	Query      string
	MaxResults int
	NextToken  string
	// Endpoint is "recent" (default) or "all" for the full archive
	Endpoint string
}

// v1.1 wire types

type v1Tweet struct {
	IDStr                string   `json:"id_str"`
	Text                 string   `json:"text"`
	FullText             string   `json:"full_text"`
	CreatedAt            string   `json:"created_at"`
	Lang                 string   `json:"lang"`
	InReplyToStatusIDStr string   `json:"in_reply_to_status_id_str"`
	User                 *v1User  `json:"user"`
	Place                *v1Place `json:"place"`
	Entities             struct {
		Hashtags []struct {
			Text string `json:"text"`
		} `json:"hashtags"`
	} `json:"entities"`
}

type v1User struct {
	IDStr      string `json:"id_str"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	Location   string `json:"location"`
}

type v1Place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	CountryCode string `json:"country_code"`
}

type v1Media struct {
	MediaIDString string `json:"media_id_string"`
	Size          int64  `json:"size"`
	Image         *struct {
		ImageType string `json:"image_type"`
	} `json:"image"`
}

func (u *v1User) normalize() *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.IDStr, Name: u.Name, ScreenName: u.ScreenName, Location: u.Location}
}

func (t *v1Tweet) normalize() Tweet {
	text := t.FullText
	if text == "" {
		text = t.Text
	}

	tweet := Tweet{
		ID:          t.IDStr,
		Text:        text,
		CreatedAt:   parseTime(t.CreatedAt),
		Lang:        t.Lang,
		Author:      t.User.normalize(),
		InReplyToID: t.InReplyToStatusIDStr,
	}
	if tweet.Author != nil {
		tweet.AuthorID = tweet.Author.ID
	}
	if t.Place != nil {
		tweet.Place = &Place{ID: t.Place.ID, Name: t.Place.Name, FullName: t.Place.FullName, CountryCode: t.Place.CountryCode}
	}
	for _, h := range t.Entities.Hashtags {
		tweet.Hashtags = append(tweet.Hashtags, h.Text)
	}
	return tweet
}

// v2 wire types

type v2Tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
	Lang      string `json:"lang"`
	Entities  struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
	} `json:"entities"`
	Geo struct {
		PlaceID string `json:"place_id"`
	} `json:"geo"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

type v2User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Location string `json:"location"`
}

type v2Place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	CountryCode string `json:"country_code"`
}

type searchResponse struct {
	Data     []v2Tweet `json:"data"`
	Includes struct {
		Users  []v2User  `json:"users"`
		Places []v2Place `json:"places"`
	} `json:"includes"`
	Meta struct {
		NewestID    string `json:"newest_id"`
		OldestID    string `json:"oldest_id"`
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// page resolves author and place expansions onto each tweet
func (r *searchResponse) page() *SearchPage {
	users := make(map[string]*User, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		users[u.ID] = &User{ID: u.ID, Name: u.Name, ScreenName: u.Username, Location: u.Location}
	}
	places := make(map[string]*Place, len(r.Includes.Places))
	for _, p := range r.Includes.Places {
		places[p.ID] = &Place{ID: p.ID, Name: p.Name, FullName: p.FullName, CountryCode: p.CountryCode}
	}

	page := &SearchPage{
		Tweets:      make([]Tweet, 0, len(r.Data)),
		NextToken:   r.Meta.NextToken,
		ResultCount: r.Meta.ResultCount,
		NewestID:    r.Meta.NewestID,
		OldestID:    r.Meta.OldestID,
	}
	for _, t := range r.Data {
		tweet := Tweet{
			ID:        t.ID,
			Text:      t.Text,
			CreatedAt: parseTime(t.CreatedAt),
			Lang:      t.Lang,
			AuthorID:  t.AuthorID,
			Author:    users[t.AuthorID],
			Place:     places[t.Geo.PlaceID],
		}
		for _, h := range t.Entities.Hashtags {
			tweet.Hashtags = append(tweet.Hashtags, h.Tag)
		}
		for _, ref := range t.ReferencedTweets {
			if ref.Type == "replied_to" {
				tweet.InReplyToID = ref.ID
			}
		}
		page.Tweets = append(page.Tweets, tweet)
	}
	return page
}

// apiErrorBody covers both the v1.1 and v2 error envelopes
type apiErrorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (b *apiErrorBody) message() string {
	if b.Detail != "" {
		return b.Detail
	}
	msgs := make([]string, 0, len(b.Errors))
	for _, e := range b.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}
	return b.Title
}

// parseTime accepts the v2 RFC3339 format and the v1.1 Ruby date format
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RubyDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
