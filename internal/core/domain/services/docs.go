// Package services provides the read side of the delivery domain: predicates,
// ordering and summaries computed over a snapshot of deliveries.
//
// The functions are pure. The flat store engine answers every list query
// with SelectDeliveries; the structured engine expresses the same predicates
// in SQL and relies on FoldForSearch for identical search results.
package services
