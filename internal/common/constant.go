// Package common contains shared constants and error kinds used across the
// Memoria client components.
package common

// AuthorizationHeaderName carries the bearer token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// MediaUploadPath is the backend endpoint accepting multipart media uploads.
const MediaUploadPath = "/api/v1/media/upload"

// MediaPath is the prefix of per-file media endpoints (GET/DELETE /{id}).
const MediaPath = "/api/v1/media"
