// kitabuddyctl is the operator tool for the KitaBuddy store. It talks to the
// store configured by the same environment as the server.
//
// Commands:
//
//	migrate                       apply the store schema
//	adduser <studentId> <name>    register a user (--role, --password)
//	maintenance on|off            set the shared maintenance flag
//	features                      list catalog entries with their stored settings
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"kitabuddy/internal/catalog"
	"kitabuddy/internal/config"
	"kitabuddy/internal/model"
	"kitabuddy/internal/settings"
	"kitabuddy/internal/store"
	"kitabuddy/internal/store/driver"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var envFile string
	flagSet := pflag.NewFlagSet("kitabuddyctl", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flagSet.SetInterspersed(false)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(out)
		return errors.New("command required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := config.LoadEnvFile(envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	cfg := config.Load()
	if cfg.StoreDriver == config.DriverMemory {
		return errors.New("STORE_DRIVER=memory has nothing to administer; use postgres or sqlite")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	backend, err := driver.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "migrate":
		// driver.Open applies the schema.
		fmt.Fprintf(out, "%s schema up to date\n", cfg.StoreDriver)
		return nil
	case "adduser":
		return addUser(ctx, backend, cmdArgs, cfg.DefaultUserPassword, out)
	case "maintenance":
		return setMaintenance(ctx, settings.New(backend, logger), cmdArgs, out)
	case "features":
		features, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
		return listFeatures(ctx, settings.New(backend, logger), features, out)
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "usage: kitabuddyctl [--env-file path] <migrate|adduser|maintenance|features> [args]")
}

func addUser(ctx context.Context, users store.UserStore, args []string, defaultPassword string, out io.Writer) error {
	var role, password string
	flagSet := pflag.NewFlagSet("adduser", pflag.ContinueOnError)
	flagSet.StringVar(&role, "role", string(model.RoleStudent), "student, admin or super admin")
	flagSet.StringVar(&password, "password", "", "initial password (default DEFAULT_USER_PASSWORD)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() < 1 {
		return errors.New("usage: kitabuddyctl adduser <studentId> [name] [--role r] [--password p]")
	}
	studentID := strings.TrimSpace(flagSet.Arg(0))
	name := strings.TrimSpace(strings.Join(flagSet.Args()[1:], " "))
	role = strings.ToLower(strings.TrimSpace(role))
	if !model.ValidUserRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	if password == "" {
		password = defaultPassword
	}

	created, err := driver.EnsureUser(ctx, users, studentID, name, role, password)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("student id %s already exists", studentID)
	}
	fmt.Fprintf(out, "added %s (%s)\n", studentID, role)
	return nil
}

func setMaintenance(ctx context.Context, svc *settings.Service, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: kitabuddyctl maintenance on|off")
	}
	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}
	if err := svc.SetMaintenanceMode(ctx, enabled); err != nil {
		return err
	}
	fmt.Fprintf(out, "maintenance mode %s\n", args[0])
	return nil
}

func listFeatures(ctx context.Context, svc *settings.Service, features *catalog.Catalog, out io.Writer) error {
	if err := svc.Refresh(ctx); err != nil {
		return err
	}
	stored := svc.Features()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTITLE\tSTATUS\tONLINE ONLY\tMESSAGE\n")
	for _, item := range features.Items() {
		setting := stored[item.ID]
		title := item.Title
		if setting.Title != "" {
			title = setting.Title
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", item.ID, title, setting.EffectiveStatus(), item.OnlineOnly, setting.Message)
	}

	var orphans []string
	for id := range stored {
		if _, ok := features.Lookup(id); !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		fmt.Fprintf(w, "%s\t%s\t%s\t-\t(not in catalog)\n", id, stored[id].Title, stored[id].EffectiveStatus())
	}
	return w.Flush()
}
