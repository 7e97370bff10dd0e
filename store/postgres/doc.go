// Package postgres stores authcore users, login audit entries and TTL
// records in PostgreSQL through the pgx database/sql driver.
//
// Open a handle with Open, apply the embedded schema with Migrate, then
// build the stores over it:
//
//	db, err := postgres.Open(ctx, dsn)
//	...
//	if err := postgres.Migrate(ctx, db); err != nil { ... }
//	users := postgres.NewUsers(db)
//	sink := postgres.NewAuditSink(db)
//
// KV is a kvstore.Store for deployments without Redis. It keeps MFA
// challenges and reset tokens in kv_entries; expired rows are ignored on
// read and removed by Purge.
package postgres
