package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/logger"
	"github.com/mrlokans/catalog/internal/recordstore"
)

// CreateAdminCommand creates an administrator directly in the local
// database.
type CreateAdminCommand struct {
	Email    string
	Password string
	Name     string
	Database config.Database
	Auth     config.Auth

	Out io.Writer
}

// NewCreateAdminCommand creates the command with database and auth settings
// taken from cfg.
func NewCreateAdminCommand(cfg *config.Config) *CreateAdminCommand {
	return &CreateAdminCommand{Database: cfg.Database, Auth: cfg.Auth, Out: os.Stdout}
}

func (cmd *CreateAdminCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)

	fs.StringVar(&cmd.Email, "email", "", "Administrator email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Administrator password, at least 12 characters (required)")
	fs.StringVar(&cmd.Name, "name", "Administrator", "Display name")
	fs.StringVar(&cmd.Database.Path, "db", cmd.Database.Path, "Path to the sqlite database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-admin -email <email> -password <password> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an administrator account in the configured database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	if cmd.Password == "" {
		return fmt.Errorf("required flag -password not provided")
	}
	return nil
}

func (cmd *CreateAdminCommand) Run() error {
	log := logger.Nop()
	db, err := database.NewDatabase(cmd.Database, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := auth.NewService(db.DB, cmd.Auth, recordstore.NewAuthEvents(), log)
	user, err := svc.CreateUser(context.Background(), cmd.Email, cmd.Name, cmd.Password, entities.UserRoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Fprintf(cmd.Out, "Created admin %s (%s)\n", user.Email, user.ID)
	return nil
}
