// Package search collects posts from the recent or full-archive search
// endpoint page by page.
//
// A Fetcher follows the continuation cursor until it has the requested
// number of posts, the endpoint runs out of pages, or several pages in a row
// keep nothing after filtering. Accumulated results are rewritten to the
// output file after every page so an interrupted run leaves usable data, and
// a checkpoint lets a later run continue from the last cursor.
//
//	f := search.NewFromConfig(client, cfg, log)
//	res, err := f.Fetch(ctx, search.Query{
//	    Text:   "golang",
//	    Target: 200,
//	    Place:  "Berlin",
//	    Output: "golang.json",
//	})
//	if errors.Is(err, retry.ErrGaveUp) {
//	    // res holds what was collected before the API kept failing
//	}
package search
