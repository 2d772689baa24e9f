// Package rewrite collects text-bearing elements from a browser session,
// sends each text through a completion service and writes the replies back.
//
// The pipeline has three stages:
//
//   - Collector queries the session for leaf text elements and snapshots
//     their text into Tasks.
//   - Dispatcher runs at most C completion requests at once, admitting tasks
//     in submission order. Every task ends in exactly one Outcome.
//   - Mutator applies a successful reply to its element. All mutations go
//     through a single writer goroutine, so the session never sees two
//     mutation commands at the same time regardless of C.
//
// Per-task failures are reported to an ErrorSink and never stop other tasks.
//
// Example usage:
//
//	collector := &rewrite.Collector{Session: session, MinLength: 20}
//	tasks, err := collector.Collect(ctx)
//	if err != nil {
//	    return err
//	}
//
//	d := rewrite.NewDispatcher(client, tmpl, rewrite.NewSessionMutator(session),
//	    rewrite.WithConcurrency(8),
//	    rewrite.WithErrorSink(rewrite.NewLogSink(logger)),
//	)
//	report := d.Dispatch(ctx, tasks)
//	fmt.Printf("%d rewritten, %d failed\n", report.Succeeded(), report.Failed())
package rewrite
