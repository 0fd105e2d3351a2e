package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"inkpost/app/config"
	"inkpost/app/logging"
	"inkpost/app/models"
	"inkpost/app/repositories"
	"inkpost/app/routes"
	"inkpost/app/services"
	"inkpost/app/storage"

	"github.com/rs/zerolog/log"
)

const CliVersion = "1.0.0"

// shutdownTimeout bounds how long in-flight requests may take once a stop signal arrives.
const shutdownTimeout = 10 * time.Second

// exit is swapped out by tests.
var exit = os.Exit

func main() {
	RealMain()
}

func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	args := os.Args[2:]
	var err error
	switch cmd := strings.ToLower(os.Args[1]); cmd {
	case "help":
		printHelp()
	case "version":
		fmt.Printf("inkpost version %s\n", CliVersion)
	case "serve":
		err = serve(args)
	case "useradd":
		err = userAdd(args)
	case "moderate":
		err = moderate(args)
	case "backup":
		err = backup(args)
	case "restore":
		err = restore(args)
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		exit(1)
	}
}

func printHelp() {
	helpText := `Usage: inkpost <command> [options]
Commands:
  help                           Display this help message.
  version                        Show version information.
  serve [-config path]           Run the blog API server.
  useradd -name <name> -password <password> [-email <email>] [-admin] [-config path]
                                 Register an account. -admin grants publishing rights.
  moderate -id <user id> [-shadow-ban=true|false] [-disable=true|false] [-config path]
                                 Change the moderation flags of an account.
  backup [-out file] [-config path]
                                 Dump the post, comment and user database.
  restore -in <file> [-config path]
                                 Load a dump written by backup.
`
	fmt.Println(helpText)
}

// application holds everything a command needs, opened from one configuration.
type application struct {
	cfg   *config.Config
	store *repositories.Store
	blog  *services.BlogService
	users *services.UserService
}

func openApplication(configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty, os.Stderr)

	blobs, err := storage.NewFileBlobStore(cfg.Storage.Root, cfg.Blog.IOTransferBuffer)
	if err != nil {
		return nil, err
	}
	store, err := repositories.NewStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("storageRoot", blobs.Root()).Str("dbPath", cfg.Storage.DBPath).Msg("Opened storage")

	return &application{
		cfg:   cfg,
		store: store,
		blog:  services.NewBlogService(store.Posts(), store.Comments(), blobs, cfg.Blog),
		users: services.NewUserService(store.Users(), cfg.Users),
	}, nil
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

func serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", config.ConfigFile, "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := openApplication(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              app.cfg.Server.Addr,
		Handler:           routes.SetupRoutes(app.blog, app.users),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", srv.Addr).Str("version", CliVersion).Msg("Starting blog service")
	return runServer(ctx, srv)
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func userAdd(args []string) error {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	configPath := fs.String("config", config.ConfigFile, "path to the YAML config file")
	name := fs.String("name", "", "account name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	admin := fs.Bool("admin", false, "grant publishing rights")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *password == "" {
		return errors.New("useradd needs -name and -password")
	}

	app, err := openApplication(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	// The operator may always create accounts, even with public registration closed.
	usersCfg := app.cfg.Users
	usersCfg.RegistrationsEnabled = true
	users := services.NewUserService(app.store.Users(), usersCfg)

	var roles []string
	if *admin {
		roles = models.AdminRoles
	}
	user, err := users.RegisterUser(*name, *email, *password, roles...)
	if err != nil {
		return err
	}
	fmt.Printf("Created user %q with id %d\n", user.Name, user.ID)
	return nil
}

func moderate(args []string) error {
	fs := flag.NewFlagSet("moderate", flag.ContinueOnError)
	configPath := fs.String("config", config.ConfigFile, "path to the YAML config file")
	id := fs.Int("id", 0, "user id")
	shadowBan := fs.Bool("shadow-ban", false, "hide everything the user writes from others")
	disable := fs.Bool("disable", false, "block the user from posting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if *id <= 0 {
		return errors.New("moderate needs a positive -id")
	}
	if !set["shadow-ban"] && !set["disable"] {
		return errors.New("moderate needs -shadow-ban or -disable")
	}

	app, err := openApplication(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	var user *models.User
	if set["shadow-ban"] {
		if user, err = app.users.SetShadowBanned(*id, *shadowBan); err != nil {
			return err
		}
	}
	if set["disable"] {
		if user, err = app.users.SetAccountDisabled(*id, *disable); err != nil {
			return err
		}
	}
	fmt.Printf("User %d (%s): shadowBanned=%t accountDisabled=%t\n",
		user.ID, user.Name, user.ShadowBanned, user.AccountDisabled)
	return nil
}

func backup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	configPath := fs.String("config", config.ConfigFile, "path to the YAML config file")
	out := fs.String("out", "", "backup file (default data/backups/backup_<unix time>.db)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		*out = filepath.Join("data", "backups", fmt.Sprintf("backup_%d.db", time.Now().Unix()))
	}

	app, err := openApplication(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	version, err := app.store.Backup(f)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush backup file: %w", err)
	}
	log.Info().Str("file", *out).Uint64("version", version).Msg("Database backed up")
	fmt.Printf("Database backed up successfully to %s\n", *out)
	return nil
}

func restore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	configPath := fs.String("config", config.ConfigFile, "path to the YAML config file")
	in := fs.String("in", "", "backup file to load")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("restore needs -in")
	}

	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	app, err := openApplication(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.store.Restore(f); err != nil {
		return err
	}
	fmt.Println("Database restored successfully")
	return nil
}
