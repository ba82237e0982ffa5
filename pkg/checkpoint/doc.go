// Package checkpoint saves and resumes the position of a paginated search.
//
// A checkpoint records the continuation token, pages fetched, the current
// run of empty pages and how many tweets were kept. It is keyed by query,
// place filter and output path, so rerunning the same search resumes where
// the last run stopped. Together with the results file it is enough to
// continue after an interruption, a rate limit or a crash.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: $XDG_DATA_HOME/tweetutil/checkpoints/ or ~/.local/share/tweetutil/checkpoints/
//   - macOS: ~/Library/Application Support/tweetutil/checkpoints/
//   - Windows: %APPDATA%/tweetutil/checkpoints/
package checkpoint
