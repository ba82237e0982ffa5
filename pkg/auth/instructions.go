package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowDeveloperPortalGuide explains where to find the keys that
// `tweetutil auth login` asks for
func ShowDeveloperPortalGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"TWITTER API KEYS",
		rule,
		"",
		"tweetutil needs keys from a Twitter developer app.",
		"",
		"STEP 1: Open https://developer.twitter.com/en/portal/dashboard",
		"   - Create a project and an app, or pick an existing one",
		"",
		"STEP 2: Enable user authentication for the app",
		"   - App permissions: Read and write (needed to post)",
		"",
		"STEP 3: Open the app's \"Keys and tokens\" tab",
		"   - API Key and Secret          -> consumer key / consumer secret",
		"   - Access Token and Secret     -> access token / access secret",
		"   - Bearer Token                -> bearer token (search only)",
		"",
		"Regenerate the access token after changing permissions, otherwise",
		"posting fails with a 403.",
		"",
		"The same keys can be supplied through CONSUMER_KEY, CONSUMER_SECRET,",
		"TWITTER_ACCOUNT_TOKEN, TWITTER_ACCOUNT_SECRET and BEARER_TOKEN.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
