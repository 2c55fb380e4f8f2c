// Package items defines item identifiers and the item-list JSON format
// shared by the chunking, task, and reconciliation layers.
//
// An item identifier is an opaque string naming one unit of input,
// typically a blob path relative to a storage container. Identifiers are
// unique within their owning set; order is irrelevant for correctness but
// preserved so that chunk boundaries are reproducible across runs.
package items
