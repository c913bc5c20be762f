// Package postgres opens the PatentDesk database and owns its schema.
//
// schema.sql is embedded and applied by Migrate on startup when PATENTDESK_DB_MIGRATE is set.
// The partial unique index subscriptions_single_main_idx guarantees at most one active main
// subscription per user; IsUniqueViolation lets services map a lost race to a conflict.
package postgres
