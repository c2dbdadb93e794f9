// Package core runs spreadsheet transfers.
//
// A [Service] ties one spreadsheet source, one sink and one sheet layout
// together. It is used by the HTTP server and the sheetctl CLI alike and
// knows nothing about either.
//
// # Transfer
//
// [Service.Transfer] performs one run:
//
//  1. Acquire a slot from the [TransferLimiter] (ErrTooManyTransfers when busy)
//  2. Resolve the dataset name from the spreadsheet file metadata
//  3. Assemble one table per sheet; failing sheets are skipped and recorded
//  4. Create the dataset from the compacted schema, then append each table's rows
//  5. Record the outcome in the [RunStore]
//
// [Service.Preview] performs steps 2 and 3 only.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Codes
// are grouped as SRC (source), SINK (sink), CFG (configuration) and RUN
// (run lifecycle); see error_messages.go for the full list.
//
// # Run History
//
// Runs are kept in PostgreSQL ([PgRunStore]) when a database is configured,
// otherwise in memory. [Service.StartHistoryScheduler] purges finished runs
// past the retention period.
package core
