// Package search fronts an optional external full-text index with
// transparent fallback to database search.
//
// The Service is a two-state facade. In the Indexed state queries run
// against Elasticsearch and book writes push document updates; in the
// Fallback state queries run against the database's own text search and
// index writes are silent no-ops. The state is an availability flag probed
// at startup and re-probed periodically, owned by the Service instance and
// read atomically - never a package global.
//
// Index failures are an operational condition, not an application error:
// they are logged, degrade the affected call, and are invisible to the
// end user beyond ranking differences.
package search
