// Package phpcs runs PHP_CodeSniffer (phpcs) and its fixer (phpcbf) against
// in-memory document text and interprets what they report.
//
// The two tools changed the meaning of their exit codes between the 3.x
// and 4.x release lines, and the fixer's legacy codes differ from the
// validator's. Translate folds all of that into one Status vocabulary;
// ParseReport turns the validator's JSON report into findings; Reconcile
// decides what a fixer run means for the document. Engine ties these to a
// Runner and a VersionCache.
package phpcs
