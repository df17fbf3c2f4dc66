// Package migration applies the embedded SQL schema of the reservation store.
//
// Migration files live under sql/ and follow the "{version}_{description}.sql"
// naming convention. Applied versions are recorded in the schema_migrations
// table so that Run is idempotent.
package migration
