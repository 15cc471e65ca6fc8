package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jacksonlee411/tenantgate/modules/access/domain/ports"
	"github.com/jacksonlee411/tenantgate/modules/access/domain/types"
	"github.com/jacksonlee411/tenantgate/modules/access/infrastructure/cache"
	"github.com/jacksonlee411/tenantgate/modules/access/infrastructure/persistence"
	"github.com/jacksonlee411/tenantgate/modules/access/services"
	"github.com/jacksonlee411/tenantgate/pkg/adminauthz"
)

var (
	flagTenant string
	flagActor  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "accessctl",
		Short: "Administrative CLI for the tenantgate access-control engine",
	}

	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "tenant ID the operation is scoped to")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "user ID of the acting administrator")

	rootCmd.AddCommand(modeCmd(), auditCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func modeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Read or change a tenant's isolation mode",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the tenant's current isolation mode",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, eng, cleanup, err := engineFromEnv(cmd.Context())
				if err != nil {
					return err
				}
				defer cleanup()

				mode, err := eng.resolver.ModeForID(ctx, flagTenant)
				if err != nil {
					return err
				}
				fmt.Println(mode)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <collaborative|isolated|role_based>",
			Short: "Change the tenant's isolation mode (admin only, audited)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, eng, cleanup, err := engineFromEnv(cmd.Context())
				if err != nil {
					return err
				}
				defer cleanup()

				entry, err := eng.admin.SetIsolationMode(ctx, eng.sctx(), args[0])
				if err != nil {
					if errors.Is(err, services.ErrConflict) {
						return errors.New("concurrent mode change detected, retry")
					}
					return err
				}
				fmt.Printf("isolation mode: %s -> %s (audit %s)\n", entry.OldValue, entry.NewValue, entry.ID)
				return nil
			},
		},
	)
	return cmd
}

func auditCmd() *cobra.Command {
	var limit int
	var cursor string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tenant's audit log",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, eng, cleanup, err := engineFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			entries, next, err := eng.audit.ListEntries(ctx, flagTenant, limit, cursor)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACTION\tACTOR\tOLD\tNEW\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Action, e.ActorUserID, e.OldValue, e.NewValue, e.CreatedAt.Format(time.RFC3339))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if next != "" {
				fmt.Printf("next cursor: %s\n", next)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "page size")
	listCmd.Flags().StringVar(&cursor, "cursor", "", "cursor from the previous page")
	cmd.AddCommand(listCmd)
	return cmd
}

type engine struct {
	resolver *services.PolicyResolver
	admin    *services.Administrator
	audit    ports.AuditStore
}

func (e *engine) sctx() types.SecurityContext {
	return types.NewSecurityContext(flagTenant, flagActor)
}

func engineFromEnv(ctx context.Context) (context.Context, *engine, func(), error) {
	if flagTenant == "" {
		return nil, nil, nil, errors.New("--tenant is required")
	}

	pool, err := pgxpool.New(ctx, dbDSNFromEnv())
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := pool.Close

	tenants := persistence.NewTenantPGStore(pool)
	users := persistence.NewUserPGStore(pool)
	audit := persistence.NewAuditPGStore(pool)

	// A shared Redis keeps mode reads coherent across processes; without one
	// the cache stays process-local.
	var modeCache ports.ModeCache = cache.NewMemoryModeCache()
	if addr := os.Getenv("TENANTGATE_REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("TENANTGATE_REDIS_PASSWORD"),
		})
		modeCache = cache.NewRedisModeCache(rdb, "")
		cleanup = func() {
			_ = rdb.Close()
			pool.Close()
		}
	}

	ids := services.NewIdentityValidator(tenants, users)
	resolver := services.NewPolicyResolver(tenants, modeCache, services.DefaultModeTTL)
	admin := services.NewAdministrator(ids, resolver, tenants)

	authzMode, err := adminauthz.ModeFromEnv()
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	if authzMode != adminauthz.ModeDisabled {
		authorizer, err := adminauthz.NewAuthorizer(
			getenvDefault("TENANTGATE_AUTHZ_MODEL", "config/authz_model.conf"),
			getenvDefault("TENANTGATE_AUTHZ_POLICY", "config/authz_policy.csv"),
			authzMode,
		)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		admin = admin.WithAuthorizer(authorizer)
	}

	return ctx, &engine{resolver: resolver, admin: admin, audit: audit}, cleanup, nil
}

func dbDSNFromEnv() string {
	if v := os.Getenv("TENANTGATE_DATABASE_URL"); v != "" {
		return v
	}

	host := getenvDefault("DB_HOST", "127.0.0.1")
	port := getenvDefault("DB_PORT", "5432")
	user := getenvDefault("DB_USER", "app")
	pass := getenvDefault("DB_PASSWORD", "app")
	name := getenvDefault("DB_NAME", "tenantgate")
	sslmode := getenvDefault("DB_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   host + ":" + port,
		Path:   "/" + name,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
