// Package cacheentries provides persistent backends for the response cache:
// a local SQLite table and a shared Redis instance.
package cacheentries
