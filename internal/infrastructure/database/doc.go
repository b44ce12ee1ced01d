// Package database provides the SQLite store behind the gateway's audit
// trail.
//
// It opens the database with the mattn/go-sqlite3 driver, applies pragmas
// (WAL, busy timeout) and runs forward-only SQL migrations from an fs.FS,
// normally the embedded migrations package.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql. Each one
// runs in its own transaction and is recorded in schema_migrations.
package database
