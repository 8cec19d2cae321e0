// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help code agents understand
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Record Store Interfaces
//
//   - courses.Store: Course table access (internal/courses/repository.go)
//   - enrollment.EnrollmentStore: Enrollment rows (internal/enrollment/synchronizer.go)
//   - comments.CommentStore, comments.ProfileStore: Thread rows and author profiles (internal/comments/manager.go)
//   - comments.Subscriber: Change subscriptions (internal/comments/manager.go)
//   - recordstore.Broker: Fan-out of row changes (internal/recordstore/broker.go)
//   - recordstore.AssetResolver: Public URLs for stored files (internal/recordstore/assets.go)
//
// ## HTTP Service Interfaces
//
//   - CourseService: Catalog CRUD (internal/http/courses.go)
//   - EnrollmentService: Enrollment toggle and wishlist (internal/http/enrollment.go)
//   - CommentService: Thread fetch, post and watch (internal/http/comments.go)
//   - TaskRunner, PurgeScheduler: Background task submission (internal/http/tasks.go, internal/http/courses.go)
//   - Pinger: Database health (internal/http/health.go)
//
// ## Background Work Interfaces
//
//   - scheduler.SweepEnqueuer: Submits orphan sweeps (internal/scheduler/sweep.go)
//   - tasks.CourseDependentsPurger: Removes rows that reference a deleted course (internal/tasks/purge_course.go)
//   - tasks.OrphanSweeper: Removes rows whose course is gone (internal/tasks/sweep_orphans.go)
//
// # Adding a New Backend
//
// To back a service with another store, implement the matching interface and
// add a compile-time check to checks.go:
//
//	var _ courses.Store = (*mystore.Courses)(nil)
//
// # Design Principles
//
//  1. Accept interfaces, return structs: constructors take the narrowest
//     interface they need and return concrete types.
//  2. Interfaces are declared by the consumer, next to the code that calls them.
//  3. Every implementation is checked in checks.go.
package interfaces
