package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/giannis84/gallery-sync/internal/cache"
	"github.com/giannis84/gallery-sync/internal/config"
	"github.com/giannis84/gallery-sync/internal/favourites"
	"github.com/giannis84/gallery-sync/internal/gateway"
	"github.com/giannis84/gallery-sync/internal/logging"
	"github.com/giannis84/gallery-sync/internal/session"
	"github.com/giannis84/gallery-sync/internal/viewmodel"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: favsync <command> [flags]

commands:
  login            -user <name> -password <pw>
  signup           -user <name> -password <pw> -email <addr>
  forgot-password  -email <addr>
  logout
  list
  add              -image <id> -url <url> [-desc <text>]
  remove           -image <id>
  refresh
  status`)
}

func main() {
	// Initialize shared dependencies
	logger := logging.NewLogger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String(logging.ErrorKey, err.Error()))
		os.Exit(1)
	}

	// Open the local favourites cache
	db, err := cache.Open(cfg.CachePath)
	if err != nil {
		logger.Error("failed to open favourites cache", slog.String(logging.ErrorKey, err.Error()))
		os.Exit(1)
	}
	defer db.Close()
	repo := cache.NewSQLiteRepository(db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Drop legacy rows with no valid owner before anything reads the cache.
	if err := repo.ClearInvalid(ctx); err != nil {
		logger.Warn("failed to clean up invalid cache rows", slog.String(logging.ErrorKey, err.Error()))
	}

	// Wire session, gateway, synchronizer and the presentation adapter
	store := session.NewStore(cfg.CredentialsPath, repo, logger)
	client := gateway.NewClient(cfg.APIBaseURL, cfg.APIKey, store, cfg.RequestTimeout, logger)
	sync := favourites.NewSynchronizer(client, repo, logger)
	vm := viewmodel.New(sync, store, logger)

	// The watcher forces a logout if the persisted session turns out corrupted.
	go session.NewWatcher(store, logger).Run(ctx)

	if err := run(ctx, os.Args[1], os.Args[2:], client, store, sync, vm); err != nil {
		logger.Error("command failed", slog.String("command", os.Args[1]), slog.String(logging.ErrorKey, err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, client *gateway.Client, store *session.Store, sync *favourites.Synchronizer, vm *viewmodel.FavouritesViewModel) error {
	switch command {
	case "login":
		return runLogin(ctx, args, client, store)
	case "signup":
		return runSignup(ctx, args, client)
	case "forgot-password":
		return runForgotPassword(ctx, args, client)
	case "logout":
		return runLogout(ctx, store)
	case "list":
		return runList(ctx, store, vm)
	case "add":
		return runAdd(ctx, args, vm)
	case "remove":
		return runRemove(ctx, args, vm)
	case "refresh":
		return sync.Refresh(ctx, store.CurrentUserID())
	case "status":
		return runStatus(store)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLogin(ctx context.Context, args []string, client *gateway.Client, store *session.Store) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "username")
	password := fs.String("password", "", "password")
	fs.Parse(args)
	if *user == "" || *password == "" {
		return errors.New("login requires -user and -password")
	}

	creds, err := client.Login(ctx, *user, *password)
	if err != nil {
		return err
	}
	if err := store.SaveLogin(creds); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (user %d)\n", creds.Username, creds.UserID)
	return nil
}

func runSignup(ctx context.Context, args []string, client *gateway.Client) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	user := fs.String("user", "", "username")
	password := fs.String("password", "", "password")
	email := fs.String("email", "", "email address")
	fs.Parse(args)
	if *user == "" || *password == "" || *email == "" {
		return errors.New("signup requires -user, -password and -email")
	}

	creds, err := client.Signup(ctx, *user, *password, *email)
	if err != nil {
		return err
	}
	// Signup does not issue a token; the account exists but a login is
	// still required.
	fmt.Printf("account created for %s (user %d), run favsync login\n", creds.Username, creds.UserID)
	return nil
}

func runForgotPassword(ctx context.Context, args []string, client *gateway.Client) error {
	fs := flag.NewFlagSet("forgot-password", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	fs.Parse(args)
	if *email == "" {
		return errors.New("forgot-password requires -email")
	}

	if err := client.ForgotPassword(ctx, *email); err != nil {
		return err
	}
	fmt.Println("password reset requested, check your inbox")
	return nil
}

func runLogout(ctx context.Context, store *session.Store) error {
	if err := store.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func runList(ctx context.Context, store *session.Store, vm *viewmodel.FavouritesViewModel) error {
	userID := store.CurrentUserID()
	if !userID.IsAuthenticated() {
		return favourites.ErrInvalidUser
	}

	vm.FetchFavourites(ctx, userID)
	records := vm.Favourites()
	if len(records) == 0 {
		fmt.Println("no favourites")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%d\t%s\t%s\n", rec.ImageID, rec.ImageURL, rec.Description)
	}
	return nil
}

func runAdd(ctx context.Context, args []string, vm *viewmodel.FavouritesViewModel) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	imageID := fs.Int64("image", 0, "image id")
	url := fs.String("url", "", "image url")
	desc := fs.String("desc", "", "image description")
	fs.Parse(args)

	if err := vm.AddFavourite(ctx, *imageID, *url, *desc); err != nil {
		return err
	}
	fmt.Printf("added favourite %d\n", *imageID)
	return nil
}

func runRemove(ctx context.Context, args []string, vm *viewmodel.FavouritesViewModel) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	imageID := fs.Int64("image", 0, "image id")
	fs.Parse(args)

	if err := vm.RemoveFavourite(ctx, *imageID); err != nil {
		return err
	}
	fmt.Printf("removed favourite %d\n", *imageID)
	return nil
}

func runStatus(store *session.Store) error {
	state := store.State()
	if !state.LoggedIn {
		fmt.Println("logged out")
		return nil
	}
	validity := "valid"
	if !store.IsValid() {
		validity = "invalid"
	}
	fmt.Printf("logged in as %s (user %s), session %s\n", state.Username, state.UserID, validity)
	return nil
}
