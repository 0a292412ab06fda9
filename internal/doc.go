// Package internal provides the engine-facing pieces of treetab.
//
// Key components:
//
// Dispatcher: runs the TGrep2 binary once per query and output flag. The
// query text is written to the engine's standard input and standard error is
// merged into the captured output.
//
// Invoker: the interface the pipeline depends on, implemented by Dispatcher
// and by fakes in tests.
//
// Cache: an optional on-disk store of engine results keyed by the corpus
// file, the engine arguments and the query text.
//
// Watcher: re-runs a query file when it changes on disk.
//
// FormatCheckReport renders a parsed query file for the check command.
//
// Usage:
//
//	d, err := internal.NewDispatcher(internal.DispatcherConfig{Corpus: "wsj.t2c.gz"}, logger)
//	if err != nil {
//	    // handle error
//	}
//
//	res, err := d.Invoke(ctx, "NP < `PRP", "t")
//	if err != nil {
//	    // handle error
//	}
//	fmt.Print(res.Text)
//
// This package is intended for internal use within treetab and should not be
// imported by external packages.
package internal
