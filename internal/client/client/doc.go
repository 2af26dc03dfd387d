// Package client contains the transport layer of the Memoria client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic contract (Sender, Uploader, Transport) used by the
//     upload manager and the cached API services.
//  2. HTTPTransport, which sends JSON requests and streams multipart uploads
//     to the memorial backend, reporting progress as bytes leave the client.
//  3. S3Uploader, an alternative upload backend writing directly to an
//     S3-compatible bucket.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Failures are classified into the sentinel kinds of package common:
// ErrNetwork (no response, timeouts, HTTP 5xx), ErrAuthRequired (HTTP 401) and
// ErrServer (malformed or rejected responses). An envelope with a non-zero
// code is returned as a value, not an error. Caller cancellation is returned
// as context.Canceled.
//
// Transports never retry; retry policy belongs to the caller.
package client
