// Package history keeps a small SQLite ledger of generation runs so operators
// can see what recent webhooks did without trawling logs.
package history
