// Package pipeline implements the stages that turn store rows into
// analytics: paged fetching with client-side verification, chunked
// membership joins, entity deduplication, aggregation and top-N selection.
//
// # Stages
//
//   - Fetcher: pages through a query in id order until an empty page,
//     keeping verified rows up to a cap.
//   - Resolver: splits a large id set into membership-filter chunks and
//     fetches them under a bounded worker pool. Results are concatenated
//     in chunk order.
//   - Deduplicate: folds repeated entity rows by id with a field-level merge.
//   - Frequency, Shares, Average, Percentage: counting and averaging.
//   - SelectTop: ranks items by a metric, excluding unknown values.
//
// All stages are deterministic for a given store content. Only the
// Resolver starts goroutines and it never outlives its call.
package pipeline
