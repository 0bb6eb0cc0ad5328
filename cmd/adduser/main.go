// Command adduser creates an account directly in the database, optionally
// with admin rights. It is the only way to obtain the first admin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nourabuild/finance-service/internal/config"
	"github.com/nourabuild/finance-service/internal/core/credential"
	"github.com/nourabuild/finance-service/internal/sdk/errs"
	"github.com/nourabuild/finance-service/internal/sdk/models"
	"github.com/nourabuild/finance-service/internal/sdk/sqldb"
	"github.com/nourabuild/finance-service/internal/services/hash"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	admin := fs.Bool("admin", false, "Grant admin rights; promotes the account if it already exists")
	dbPath := fs.String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> [-name <name>] [-password <password>] [-admin] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	cfg := config.Load()
	if *dbPath != "" {
		cfg.DBDriver = sqldb.DriverSQLite
		cfg.SQLiteDBPath = *dbPath
	}

	ctx := context.Background()
	db, err := sqldb.New(ctx, sqldb.Config{
		Driver: cfg.DBDriver,
		URL:    cfg.DatabaseDSN(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := credential.NewService(db, hash.NewHashService(cfg.BcryptCost))

	if existing, err := db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)), true); err == nil {
		if !*admin {
			return fmt.Errorf("user %s already exists", existing.Email)
		}
		if _, err := svc.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("failed to promote user: %w", err)
		}
		fmt.Fprintf(stdout, "User %s promoted to admin\n", existing.Email)
		return nil
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	displayName := *name
	if displayName == "" {
		displayName, _, _ = strings.Cut(*email, "@")
	}

	user, err := svc.Register(ctx, displayName, *email, password)
	if err != nil {
		return describe(err)
	}

	if *admin {
		if user, err = svc.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
			return fmt.Errorf("failed to grant admin: %w", err)
		}
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s (role %s)\n", user.Email, user.ID, user.Role)
	return nil
}

// describe flattens validation details into a single line.
func describe(err error) error {
	var e *errs.Error
	if !errors.As(err, &e) || len(e.Fields) == 0 {
		return fmt.Errorf("failed to create user: %w", err)
	}
	parts := make([]string, 0, len(e.Fields))
	for field, code := range e.Fields {
		parts = append(parts, field+": "+code)
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, ", "))
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
