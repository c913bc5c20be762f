// Package plans is the PatentDesk pricing catalog.
//
// Plans live in the pricing_plans table, are seeded from configs/plans.yaml, and are read
// through an LRU-cached Catalog. A plan that any subscription references is immutable:
// Upsert refuses to change its price fields and returns ErrPlanReferenced.
//
// Period lengths are calendar days:
//
//	monthly      30
//	quarterly    90
//	half-yearly  180
//	yearly       365
package plans
