// Package services defines shared utilities consumed by the generator, the
// AList client and the webhook handlers.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and generation modes for
//     logging and history records.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP statuses (bad request vs bad gateway).
//
// Use these helpers when wiring new components so operational behaviour
// (error classification, observability) stays uniform across the service.
package services
