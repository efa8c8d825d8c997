// Package daemon runs the long-lived webhook service.
//
// A Daemon assembles the AList client, generator, history ledger, metrics and
// HTTP server from one Config, then guards the state directory with a file
// lock so two instances never share it.
package daemon
