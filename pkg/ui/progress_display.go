package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"tweetutil/pkg/twitter"
)

// SearchProgress renders a single updating line while a search paginates
type SearchProgress struct {
	mu        sync.Mutex
	query     string
	target    int
	collected int
	pages     int
	emptyRun  int
	startTime time.Time
	isDebug   bool
}

// NewSearchProgress creates a progress line for query
func NewSearchProgress(query string, target int, debug bool) *SearchProgress {
	return &SearchProgress{
		query:     query,
		target:    target,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

// Page records one fetched page
func (p *SearchProgress) Page(page, received, kept, collected, emptyRun int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = page
	p.collected = collected
	p.emptyRun = emptyRun

	if p.isDebug {
		fmt.Fprintf(Out, "%s page %d • %d received • %d kept • %d/%d\n",
			Magenta("→"), page, received, kept, collected, p.target)
		return
	}
	p.printProgress()
}

// printProgress prints the progress line in place
func (p *SearchProgress) printProgress() {
	fmt.Fprintf(Out, "\r%s\r%s", strings.Repeat(" ", 100), p.line())
}

func (p *SearchProgress) line() string {
	progress := 0.0
	if p.target > 0 {
		progress = min(float64(p.collected)/float64(p.target), 1)
	}
	const barWidth = 20
	filled := int(progress * barWidth)
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • page %d • %s",
		Cyan(truncate(p.query, 24)),
		bar,
		p.collected,
		p.target,
		p.pages,
		formatDuration(time.Since(p.startTime)),
	)
	if p.emptyRun > 0 {
		line += " • " + Yellow(fmt.Sprintf("%d empty", p.emptyRun))
	}
	return line
}

// RateLimitWarning shows a rate limit pause
func (p *SearchProgress) RateLimitWarning(waitTime time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Out, "\n%s Rate limited. Waiting %s...\n", Yellow("⚠"), formatDuration(waitTime))
}

// Complete prints the summary once the search has stopped
func (p *SearchProgress) Complete(reason string, output string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(Out, "\n\n%s Collected %d of %d posts for %q\n",
		Green("✓"), p.collected, p.target, p.query)
	fmt.Fprintf(Out, "  %s %d pages in %s, stopped: %s\n",
		Dim("•"), p.pages, formatDuration(time.Since(p.startTime)), reason)
	if output != "" {
		fmt.Fprintf(Out, "  %s saved to %s\n", Dim("•"), output)
	}
}

// PrintTweets prints one line per post
func PrintTweets(tweets []twitter.Tweet) {
	for _, t := range tweets {
		author := "unknown"
		if t.Author != nil && t.Author.ScreenName != "" {
			author = "@" + t.Author.ScreenName
		}
		when := ""
		if !t.CreatedAt.IsZero() {
			when = t.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		text := strings.Join(strings.Fields(t.Text), " ")
		fmt.Fprintf(Out, "%s %s %s %s\n", Dim(when), Cyan(author), truncate(text, 100), Dim(t.ID))
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncate shortens s to n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
