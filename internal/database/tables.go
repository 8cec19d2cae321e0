package database

import (
	"context"
	"fmt"

	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/recordstore"
)

// Row-level policies of the catalog tables.
var (
	CoursePolicy = recordstore.Policy[entities.Course]{
		Select: recordstore.AllowAll,
		Insert: func(s recordstore.Session, _ *entities.Course) bool { return s.IsAdmin() },
		Update: recordstore.AdminOnly,
		Delete: recordstore.AdminOnly,
	}

	EnrollmentPolicy = recordstore.Policy[entities.Enrollment]{
		Select: recordstore.OwnRows("user_id"),
		Insert: func(s recordstore.Session, row *entities.Enrollment) bool {
			return s.Authenticated() && row.UserID == s.UserID
		},
		Update: recordstore.DenyAll,
		Delete: recordstore.OwnRows("user_id"),
	}

	CommentPolicy = recordstore.Policy[entities.Comment]{
		Select: recordstore.AllowAll,
		Insert: func(s recordstore.Session, row *entities.Comment) bool {
			return s.Authenticated() && row.UserID == s.UserID
		},
		Update: recordstore.DenyAll,
		Delete: recordstore.DenyAll,
	}

	ProfilePolicy = recordstore.Policy[entities.Profile]{
		Select: recordstore.AllowAll,
		Insert: func(s recordstore.Session, row *entities.Profile) bool {
			return s.Authenticated() && row.ID == s.UserID
		},
		Update: recordstore.OwnRows("id"),
		Delete: recordstore.DenyAll,
	}
)

// Tables groups the policy-guarded catalog tables.
type Tables struct {
	Courses     *recordstore.Table[entities.Course]
	Enrollments *recordstore.Table[entities.Enrollment]
	Comments    *recordstore.Table[entities.Comment]
	Profiles    *recordstore.Table[entities.Profile]
}

func NewTables(client *recordstore.Client) *Tables {
	return &Tables{
		Courses:     recordstore.NewTable(client, "courses", CoursePolicy),
		Enrollments: recordstore.NewTable(client, "enrollments", EnrollmentPolicy),
		Comments:    recordstore.NewTable(client, "comments", CommentPolicy),
		Profiles:    recordstore.NewTable(client, "profiles", ProfilePolicy),
	}
}

// PurgeCourseDependents removes the enrollments and comments of a course.
// It runs with the service role, so subscribers see the deletions.
func (t *Tables) PurgeCourseDependents(ctx context.Context, courseID string) (int64, error) {
	ctx = recordstore.ServiceContext(ctx)
	q := recordstore.Eq("course_id", courseID)

	enrollments, err := t.Enrollments.Delete(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("purge enrollments: %w", err)
	}
	comments, err := t.Comments.Delete(ctx, recordstore.Eq("course_id", courseID))
	if err != nil {
		return int64(len(enrollments)), fmt.Errorf("purge comments: %w", err)
	}
	return int64(len(enrollments) + len(comments)), nil
}
