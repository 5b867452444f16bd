// Package core finds the credentials in one password export that are missing
// from another.
//
// The package has no UI dependencies. The web server and the CLI both drive
// it, and the pure pipeline functions can be called directly from tests.
//
// # Pipeline
//
// An export goes through four steps:
//
//  1. [Tokenize] splits CSV text into rows of fields.
//  2. [DetectMapping] matches the header row against per-field synonyms
//     (English and French, accent-insensitive).
//  3. [NormalizeRow] builds a [Record], normalising URL and username and
//     deriving the registrable domain.
//  4. [ComputeMissing] keys each record on domain (or full URL in strict
//     mode) plus username and keeps the entries of source A absent from B.
//
// [GenerateCSV] renders the result in the Apple Passwords import format.
// [ParseSource] runs steps 1 to 3 on a string; [ParseReader] does the same
// for an io.Reader after dropping a byte order mark, repairing invalid UTF-8
// and enforcing a size cap.
//
// # Sessions
//
// [Service] keeps two slots (A and B) per browser session. Loading a slot
// replaces only that slot, and a failed load leaves it untouched. Parsing is
// bounded across sessions by an [UploadLimiter]. Idle sessions are swept by
// [Service.StartSessionJanitor].
//
// # History
//
// When a [RunStore] is configured, each comparison records a
// [ComparisonRun]: counts, mode and client IP. Record contents are never
// stored. [Service.StartHistoryPruner] applies the retention window.
//
// # Error Handling
//
// The pipeline functions do not fail: bad URLs give an empty domain and
// unknown headers give empty fields. Boundary errors are sentinel values
// ([ErrFileTooLarge], [ErrInvalidSlot], [ErrSessionNotFound],
// [ErrTooManyUploads]) and [MapError] turns them into user-facing messages
// with support codes. An empty upload or an unloaded slot is not an error;
// it contributes an empty record list.
package core
