package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/catalog/internal/client"
	"github.com/mrlokans/catalog/internal/courses"
)

const (
	defaultServerURL = "http://localhost:8188"
	requestTimeout   = 30 * time.Second
)

// remoteFlags are the connection flags shared by the API commands.
type remoteFlags struct {
	ServerURL string
	Email     string
	Password  string
}

func (r *remoteFlags) register(fs *flag.FlagSet, needsLogin bool) {
	fs.StringVar(&r.ServerURL, "server", envOr("CATALOG_SERVER", defaultServerURL), "Catalog server URL")
	if needsLogin {
		fs.StringVar(&r.Email, "email", os.Getenv("CATALOG_EMAIL"), "Admin email (or CATALOG_EMAIL)")
		fs.StringVar(&r.Password, "password", os.Getenv("CATALOG_PASSWORD"), "Admin password (or CATALOG_PASSWORD)")
	}
}

func (r *remoteFlags) requireLogin() error {
	if r.Email == "" || r.Password == "" {
		return fmt.Errorf("admin credentials required: set -email and -password")
	}
	return nil
}

// connect returns a client, logged in when credentials are set.
func (r *remoteFlags) connect(ctx context.Context) (*client.Client, error) {
	c := client.New(r.ServerURL, requestTimeout)
	if r.Email != "" {
		if _, err := c.Login(ctx, r.Email, r.Password); err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
	}
	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// CoursesListCommand prints the catalog.
type CoursesListCommand struct {
	remote remoteFlags
	Query  string

	Out io.Writer
}

func NewCoursesListCommand() *CoursesListCommand {
	return &CoursesListCommand{Out: os.Stdout}
}

func (cmd *CoursesListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("courses-list", flag.ContinueOnError)
	cmd.remote.register(fs, false)
	fs.StringVar(&cmd.Query, "q", "", "Only show courses matching this term")
	return fs.Parse(args)
}

func (cmd *CoursesListCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c, err := cmd.remote.connect(ctx)
	if err != nil {
		return err
	}
	list, err := c.ListCourses(ctx, cmd.Query)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	w := tabwriter.NewWriter(cmd.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tINSTRUCTOR\tCATEGORY\tPRICE")
	for _, course := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", course.ID, course.Title, course.Instructor, course.Category, course.Price)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "\n%d course(s)\n", len(list))
	return nil
}

// SeedCourse is one entry of a seed file.
type SeedCourse struct {
	Title           string  `yaml:"title"`
	Instructor      string  `yaml:"instructor"`
	Description     string  `yaml:"description"`
	Image           string  `yaml:"image"`
	InstructorImage string  `yaml:"instructorimage"`
	Price           float64 `yaml:"price"`
	OriginalPrice   float64 `yaml:"originalprice"`
	Category        string  `yaml:"category"`
	Duration        string  `yaml:"duration"`
	Level           string  `yaml:"level"`
	Lessons         int     `yaml:"lessons"`
	Content         string  `yaml:"content"`
}

func (s SeedCourse) request() courses.CreateRequest {
	req := courses.CreateRequest{
		Title:           s.Title,
		Instructor:      s.Instructor,
		Description:     s.Description,
		Image:           s.Image,
		InstructorImage: s.InstructorImage,
		Price:           courses.Of(s.Price),
		Category:        s.Category,
		Duration:        s.Duration,
		Level:           s.Level,
		Lessons:         s.Lessons,
		Content:         s.Content,
	}
	if s.OriginalPrice != 0 {
		req.OriginalPrice = courses.Of(s.OriginalPrice)
	}
	return req
}

// SeedFile is the layout of a courses.yaml file.
type SeedFile struct {
	Courses []SeedCourse `yaml:"courses"`
}

// LoadSeedFile reads and parses a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &seed, nil
}

// CoursesSeedCommand creates the courses listed in a YAML file.
type CoursesSeedCommand struct {
	remote remoteFlags
	File   string
	DryRun bool

	Out io.Writer
}

func NewCoursesSeedCommand() *CoursesSeedCommand {
	return &CoursesSeedCommand{Out: os.Stdout}
}

func (cmd *CoursesSeedCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("courses-seed", flag.ContinueOnError)
	cmd.remote.register(fs, true)
	fs.StringVar(&cmd.File, "file", "", "Path to courses.yaml (required)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be created without making changes")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.File == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if cmd.DryRun {
		return nil
	}
	return cmd.remote.requireLogin()
}

func (cmd *CoursesSeedCommand) Run() error {
	seed, err := LoadSeedFile(cmd.File)
	if err != nil {
		return err
	}
	if cmd.DryRun {
		for _, s := range seed.Courses {
			fmt.Fprintf(cmd.Out, "would create %q by %s\n", s.Title, s.Instructor)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c, err := cmd.remote.connect(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, s := range seed.Courses {
		course, err := c.CreateCourse(ctx, s.request())
		if err != nil {
			failed++
			fmt.Fprintf(cmd.Out, "failed  %q: %v\n", s.Title, err)
			continue
		}
		fmt.Fprintf(cmd.Out, "created %q (%s)\n", course.Title, course.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d course(s) failed", failed, len(seed.Courses))
	}
	return nil
}

// CourseDeleteCommand removes one course.
type CourseDeleteCommand struct {
	remote remoteFlags
	ID     string

	Out io.Writer
}

func NewCourseDeleteCommand() *CourseDeleteCommand {
	return &CourseDeleteCommand{Out: os.Stdout}
}

func (cmd *CourseDeleteCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("course-delete", flag.ContinueOnError)
	cmd.remote.register(fs, true)
	fs.StringVar(&cmd.ID, "id", "", "Course id (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.ID == "" {
		return fmt.Errorf("required flag -id not provided")
	}
	return cmd.remote.requireLogin()
}

func (cmd *CourseDeleteCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c, err := cmd.remote.connect(ctx)
	if err != nil {
		return err
	}
	deleted, err := c.DeleteCourse(ctx, cmd.ID)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	fmt.Fprintf(cmd.Out, "Deleted %q (%s)\n", deleted.Title, deleted.ID)
	return nil
}
