// Package fleet aggregates live crew positions into presence records.
//
// The Aggregator fans out one latest-fix fetch per crew member, joins each
// result with its in-progress dispatch, and classifies data freshness. Crew
// members whose fetch fails are dropped from the batch instead of failing it.
// The Poller re-runs the aggregation on a fixed cadence while a tracking view
// is mounted.
package fleet
