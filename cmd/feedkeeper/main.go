// Command feedkeeper collects a social feed into daily history and
// summaries.
//
// Usage:
//
//	feedkeeper watch --file feed.html   Watch screen, collecting from a saved snapshot
//	feedkeeper watch --feed URL         Collect from a syndication feed
//	feedkeeper collect                  Run one pass and print the result
//	feedkeeper summary [--date D]       Generate and store a day summary
//	feedkeeper export --format csv      Export stored history
//	feedkeeper stats                    History and summary statistics
//	feedkeeper clear                    Delete stored history and summaries
//	feedkeeper events                   JSONL event log viewer
//	feedkeeper rules                    Print the effective extraction rules
package main

import (
	"os"

	"github.com/abelbrown/feedkeeper/internal/logging"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		logging.Error("command failed", "err", err)
	}
	logging.Close()
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
