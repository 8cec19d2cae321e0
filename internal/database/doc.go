// Package database opens the catalog database and binds its tables.
//
// # Layout
//
//	database/
//	├── database.go  # Connection setup (sqlite or postgres), migrations, maintenance
//	└── tables.go    # recordstore tables and their row-level policies
//
// # Usage
//
//	db, err := database.NewDatabase(cfg.Database, log)
//	client := recordstore.New(db.DB, broker, log)
//	tables := database.NewTables(client)
//
//	courses, err := tables.Courses.Select(ctx, recordstore.NewQuery())
//
// # Policies
//
//   - courses: anyone reads, admins write
//   - enrollments: users read, create and delete their own rows
//   - comments: anyone reads, users add comments as themselves
//   - profiles: anyone reads, users create and update their own profile
//
// Background jobs use recordstore.ServiceContext to bypass policies.
package database
