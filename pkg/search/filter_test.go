package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"tweetutil/pkg/twitter"
)

func TestPlaceFilter(t *testing.T) {
	tests := []struct {
		name  string
		place string
		tweet twitter.Tweet
		want  bool
	}{
		{
			name:  "empty place keeps everything",
			place: "",
			tweet: twitter.Tweet{ID: "1"},
			want:  true,
		},
		{
			name:  "geo place name",
			place: "brooklyn",
			tweet: twitter.Tweet{ID: "1", Place: &twitter.Place{Name: "Brooklyn", FullName: "Brooklyn, NY"}},
			want:  true,
		},
		{
			name:  "geo full name",
			place: "NY",
			tweet: twitter.Tweet{ID: "1", Place: &twitter.Place{Name: "Brooklyn", FullName: "Brooklyn, NY"}},
			want:  true,
		},
		{
			name:  "author location",
			place: "Berlin",
			tweet: twitter.Tweet{ID: "1", Author: &twitter.User{Location: "berlin, germany"}},
			want:  true,
		},
		{
			name:  "hashtag with spaces removed",
			place: "New York",
			tweet: twitter.Tweet{ID: "1", Hashtags: []string{"coffee", "NewYork"}},
			want:  true,
		},
		{
			name:  "hashtag with punctuation removed",
			place: "St. Louis",
			tweet: twitter.Tweet{ID: "1", Hashtags: []string{"#stlouis"}},
			want:  true,
		},
		{
			name:  "hashtag must match whole place",
			place: "New York",
			tweet: twitter.Tweet{ID: "1", Hashtags: []string{"newyorkcity"}},
			want:  false,
		},
		{
			name:  "text mentions do not count",
			place: "Paris",
			tweet: twitter.Tweet{ID: "1", Text: "flying to Paris", Author: &twitter.User{Location: "Lyon"}},
			want:  false,
		},
		{
			name:  "no location data",
			place: "Paris",
			tweet: twitter.Tweet{ID: "1"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlaceFilter(tt.place)(tt.tweet))
		})
	}
}

func TestAll(t *testing.T) {
	english := func(t twitter.Tweet) bool { return t.Lang == "en" }
	f := All(PlaceFilter("Berlin"), english, nil)

	berliner := twitter.Tweet{ID: "1", Lang: "en", Author: &twitter.User{Location: "Berlin"}}
	assert.True(t, f(berliner))

	berliner.Lang = "de"
	assert.False(t, f(berliner))

	assert.True(t, All()(twitter.Tweet{}))
}
