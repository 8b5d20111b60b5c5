// Package database provides SQLite-based storage for picdedup.
//
// HistoryDB records:
//   - every deduplication run with its detector chain and totals
//   - the stages of each run and the descriptor files they wrote
//   - the thumbnail-to-source mapping of each working directory
//
// SQLite (via modernc.org/sqlite) keeps the history in a single CGO-free
// file under the XDG data directory.
package database
