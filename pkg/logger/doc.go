// Package logger provides the structured logging interface used across tweetutil.
//
// It wraps zerolog with a small interface so components can take a Logger in
// their constructors and tests can swap in NewTestLogger or NewNopLogger.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "search")
//	log.InfoWithFields("Page fetched", map[string]interface{}{
//	    "page": 3,
//	    "kept": 12,
//	})
//
// Console output is colored and human readable. When a log file is
// configured every event is also appended to it as a JSON line.
package logger
