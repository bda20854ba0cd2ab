// Package catalog implements the catalog domain surface: search queries with
// deterministic request paths, search-result HTML parsing, product and circle
// lookups, and batch/streaming variants of search.
//
// The package sits above pkg/client: every network access goes through the
// client's cache, rate-limit, and retry pipeline, and parsed results get a
// second cache layer keyed by the same canonical paths.
package catalog
