// Package cli provides the Memoria command-line client.
//
// It wires configuration, local storage, the session, the response cache and
// the upload manager behind a small set of cobra commands:
//
//   - login / logout / status: manage the stored bearer token
//   - upload: capture local files, upload them and print their URLs
//   - get: fetch an API path through the response cache
//   - delete: remove an uploaded media object on the server
//   - cache sweep: drop expired cache entries
//   - version: print build information
//
// Commands run through Execute, which also releases the App afterwards.
package cli
