// Package ports defines the interfaces that connect the application layer
// (internal/app) to infrastructure adapters (internal/adapters).
//
// # Port Interfaces
//
//   - [MessageSource]: lists candidate messages in source order
//   - [WebhookClient]: delivers one message and classifies the outcome
//   - [DigestLedger]: the persisted set of delivered fingerprints
//   - [Settings]: read-only configuration values resolved at run time
//   - [StatusSink]: fire-and-forget progress reporting
//   - [RecordValidator]: optional per-record validation before hashing
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer depends only on these interfaces, so runs can be
// tested with in-memory fakes.
package ports
