// Package generator runs the listing, mapping and writing steps for one
// webhook or CLI request and folds the outcome into a Result.
//
// Directory runs walk AList first; a listing failure fails the whole run
// before any file is written. Direct runs skip listing entirely. Write
// failures never abort a batch: they are collected per file in
// Result.Errors. Every run gets a uuid that appears in logs, metrics and the
// history ledger.
package generator
