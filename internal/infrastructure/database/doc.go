// Package database provides SQLite connectivity for the shared record store.
//
// Every clinicauth process that should see the same users and session opens
// the same database file, the way every tab of one origin shares one
// localStorage. WAL mode and the busy timeout let those processes read and
// write concurrently without "database is locked" failures.
//
// Migrations are embedded by the migrations package and applied with
// Migrate. Each has an .up.sql and a .down.sql file and runs in its own
// transaction.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// The database file is created with 0600 permissions. It holds password
// hashes and salts, never plaintext passwords.
package database
