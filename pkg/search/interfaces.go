package search

import (
	"context"

	"tweetutil/pkg/archive"
	"tweetutil/pkg/twitter"
)

// Client defines the search endpoint used by Fetcher
type Client interface {
	Search(ctx context.Context, p twitter.SearchParams) (*twitter.SearchPage, error)
}

// Archiver records kept posts per run. *archive.Archive satisfies it.
type Archiver interface {
	StartRun(ctx context.Context, kind archive.Kind, query string) (string, error)
	SavePosts(ctx context.Context, runID string, tweets []twitter.Tweet) (int, error)
	FinishRun(ctx context.Context, runID string, count int, reason string) error
}
