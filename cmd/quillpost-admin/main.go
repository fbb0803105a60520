// Command quillpost-admin is the operator CLI for QuillPost. It talks
// directly to the configured database, bypassing the HTTP API, and covers
// bootstrap and account maintenance tasks.
//
// Usage:
//
//	quillpost-admin [-config path] user create -username NAME -password PASS [-role user|admin]
//	quillpost-admin [-config path] user list
//	quillpost-admin [-config path] user block -id ID
//	quillpost-admin [-config path] user unblock -id ID
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarlen/quillpost/internal/config"
	"github.com/tmarlen/quillpost/internal/domain"
	"github.com/tmarlen/quillpost/internal/pkg/crypto"
	"github.com/tmarlen/quillpost/internal/repository"
	"github.com/tmarlen/quillpost/internal/repository/postgres"
	"github.com/tmarlen/quillpost/internal/repository/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || args[0] != "user" {
		usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(*configPath)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, closeDB, err := openUserRepository(ctx, cfg, logger)
	if err != nil {
		fatalf("failed to open database: %v", err)
	}
	defer closeDB()

	switch args[1] {
	case "create":
		createUser(ctx, users, args[2:])
	case "list":
		listUsers(ctx, users)
	case "block":
		setBlocked(ctx, users, args[2:], true)
	case "unblock":
		setBlocked(ctx, users, args[2:], false)
	default:
		usage()
		os.Exit(2)
	}
}

func createUser(ctx context.Context, users repository.UserRepository, args []string) {
	fs := flag.NewFlagSet("user create", flag.ExitOnError)
	username := fs.String("username", "", "username for the new account")
	password := fs.String("password", "", "password for the new account")
	role := fs.String("role", "user", "role: user or admin")
	_ = fs.Parse(args)

	if *username == "" || *password == "" {
		fatalf("user create: -username and -password are required")
	}

	parsedRole, err := domain.ParseRole(*role)
	if err != nil {
		fatalf("user create: %v", err)
	}

	hash, err := crypto.HashPassword(*password)
	if err != nil {
		fatalf("user create: failed to hash password: %v", err)
	}

	user := domain.NewUser(*username, hash, parsedRole)
	if err := users.Create(ctx, user); err != nil {
		fatalf("user create: %v", err)
	}
	fmt.Printf("created user %q (id %d, role %s)\n", user.Username, user.ID, user.Role)
}

func listUsers(ctx context.Context, users repository.UserRepository) {
	result, err := users.List(ctx, repository.ListOptions{Limit: 1000})
	if err != nil {
		fatalf("user list: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tBLOCKED\tCREATED")
	for _, u := range result.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n",
			u.ID, u.Username, u.Role, u.Blocked, u.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
	fmt.Printf("%d user(s)\n", result.Total)
}

func setBlocked(ctx context.Context, users repository.UserRepository, args []string, blocked bool) {
	name := "user block"
	if !blocked {
		name = "user unblock"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "user ID")
	_ = fs.Parse(args)

	if *id == 0 {
		fatalf("%s: -id is required", name)
	}

	user, err := users.SetBlocked(ctx, *id, blocked)
	if err != nil {
		fatalf("%s: %v", name, err)
	}
	fmt.Printf("user %q (id %d) blocked=%t\n", user.Username, user.ID, user.Blocked)
}

func openUserRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), logger)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewUserRepository(db), func() { _ = db.Close() }, nil
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  quillpost-admin [-config path] user create -username NAME -password PASS [-role user|admin]
  quillpost-admin [-config path] user list
  quillpost-admin [-config path] user block -id ID
  quillpost-admin [-config path] user unblock -id ID`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
