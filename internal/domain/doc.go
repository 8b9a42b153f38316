// Package domain contains the core types of inboxship.
//
// It has no dependencies on infrastructure (HTTP, file system, databases)
// beyond the error envelope library.
//
// # Types
//
//   - [Message]: one record from the message source, passed through to the webhook
//   - [Fingerprint] and [Hasher]: the content hash used as the dedup key
//   - [Outcome]: the classified result of one webhook delivery
//   - [RunReport]: counters and outcome of one ingestion run
//
// Errors are go-errors envelopes tagged with a text code (see errors.go);
// use [HasCode] to classify them.
package domain
