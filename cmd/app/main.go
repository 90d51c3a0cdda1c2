package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"blogicum/internal/config"
	"blogicum/internal/db"
	"blogicum/internal/logging"
	"blogicum/internal/media"
	"blogicum/internal/server"
)

var rootCmd = &cobra.Command{
	Use:           "blogicum",
	Short:         "Blogicum blog server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var createUser struct {
	username string
	password string
	email    string
	staff    bool
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an account, e.g. the first staff user",
	Args:  cobra.NoArgs,
	RunE:  runCreateUser,
}

var revokeStaff bool

var setStaffCmd = &cobra.Command{
	Use:   "set-staff <username>",
	Short: "Grant or revoke moderation rights",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetStaff,
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete-user <username>",
	Short: "Delete an account with its posts and comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteUser,
}

func init() {
	createUserCmd.Flags().StringVar(&createUser.username, "username", "", "login name (required)")
	createUserCmd.Flags().StringVar(&createUser.password, "password", "", "password (required)")
	createUserCmd.Flags().StringVar(&createUser.email, "email", "", "email address")
	createUserCmd.Flags().BoolVar(&createUser.staff, "staff", false, "grant moderation rights")
	createUserCmd.MarkFlagRequired("username")
	createUserCmd.MarkFlagRequired("password")

	setStaffCmd.Flags().BoolVar(&revokeStaff, "revoke", false, "remove moderation rights instead")

	rootCmd.AddCommand(serveCmd, createUserCmd, setStaffCmd, deleteUserCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.IsDev)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	images, err := media.New(cfg.MediaDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, store, images, log).Start(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

// openStore opens the configured database for the account commands.
func openStore() (*db.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.Open(cfg.DBPath)
}

func lookupUser(ctx context.Context, store *db.Store, username string) (*db.User, error) {
	user, err := store.GetUserByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errors.Errorf("user %q does not exist", username)
	}
	return user, err
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(createUser.password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	user := &db.User{
		Username:     createUser.username,
		Email:        createUser.email,
		PasswordHash: hash,
		IsStaff:      createUser.staff,
	}
	if _, err := store.CreateUser(cmd.Context(), user); errors.Is(err, db.ErrDuplicate) {
		return errors.Errorf("user %q already exists", createUser.username)
	} else if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, staff %t)\n", user.Username, user.Id, user.IsStaff)
	return nil
}

func runSetStaff(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := lookupUser(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}
	if err := store.SetStaff(cmd.Context(), user.Id, !revokeStaff); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %s staff %t\n", user.Username, !revokeStaff)
	return nil
}

func runDeleteUser(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := lookupUser(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}
	if err := store.DeleteUser(cmd.Context(), user.Id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", user.Username)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
