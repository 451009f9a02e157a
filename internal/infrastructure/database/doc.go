// Package database provides SQLite storage for the hvpsu command audit trail.
//
// This package manages:
//   - The connection, with WAL mode and a busy timeout
//   - Versioned schema migrations read from any fs.FS
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmod 0600
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be NULLABLE or carry a DEFAULT,
// and every .up.sql has a matching .down.sql. MigrateDown reverts the latest
// applied version; hvpsud runs it for "hvpsud migrate-down".
package database
