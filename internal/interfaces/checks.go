package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/comments"
	"github.com/mrlokans/catalog/internal/courses"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/enrollment"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/http"
	"github.com/mrlokans/catalog/internal/recordstore"
	"github.com/mrlokans/catalog/internal/scheduler"
	"github.com/mrlokans/catalog/internal/tasks"
)

// =============================================================================
// Record Store
// =============================================================================

var _ courses.Store = (*recordstore.Table[entities.Course])(nil)
var _ enrollment.EnrollmentStore = (*recordstore.Table[entities.Enrollment])(nil)
var _ comments.CommentStore = (*recordstore.Table[entities.Comment])(nil)
var _ comments.ProfileStore = (*recordstore.Table[entities.Profile])(nil)
var _ comments.Subscriber = (*recordstore.Client)(nil)

// Broker implementations
var _ recordstore.Broker = (*recordstore.MemoryBroker)(nil)
var _ recordstore.Broker = (*recordstore.RedisBroker)(nil)

// AssetResolver implementations
var _ recordstore.AssetResolver = recordstore.BucketResolver{}
var _ recordstore.AssetResolver = (*recordstore.CloudinaryResolver)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.CourseService = (*courses.Repository)(nil)
var _ enrollment.CourseLookup = (*courses.Repository)(nil)
var _ http.EnrollmentService = (*enrollment.Synchronizer)(nil)
var _ http.CommentService = (*comments.Manager)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.TaskRunner = (*tasks.Client)(nil)
var _ http.PurgeScheduler = (*tasks.Client)(nil)
var _ scheduler.SweepEnqueuer = (*tasks.Client)(nil)
var _ scheduler.SweepEnqueuer = scheduler.InlineSweep{}
var _ scheduler.OrphanSweeper = (*database.Database)(nil)
var _ tasks.OrphanSweeper = (*database.Database)(nil)
var _ tasks.CourseDependentsPurger = (*database.Tables)(nil)

// =============================================================================
// Audit
// =============================================================================

var _ http.AuditService = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
