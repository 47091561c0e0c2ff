// Package secret resolves secret references in configuration values.
//
// A reference has the form "secretref:<provider>:<ref>", either as the whole
// value or inline ("Bearer secretref:env:API_TOKEN"). Environment variables
// written as ${VAR} are expanded first and must be set.
//
// Provider lookups are memoized per (provider, ref): concurrent resolutions
// of one reference share a single provider call, and a resolved value is
// reused until the configured TTL passes. Failed lookups are never kept.
package secret
