// Package auth stores Twitter API credentials.
//
// A Manager tries the system keyring first, then an AES-GCM encrypted file
// in the user config directory, and finally reads the environment variables
// CONSUMER_KEY, CONSUMER_SECRET, TWITTER_ACCOUNT_TOKEN, TWITTER_ACCOUNT_SECRET,
// BEARER_TOKEN and TWITTER_USER. Accounts can carry OAuth 1.0a user keys for
// posting and timelines, an app bearer token for search, or both.
package auth
