// Package main hosts the strmhook CLI.
//
// The Cobra command tree runs the webhook server in the foreground, performs
// one-off generation runs without HTTP, prints the run history and scaffolds
// or inspects configuration. Configuration is resolved once per invocation
// and shared by every subcommand.
package main
