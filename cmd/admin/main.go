// Command admin grants roles and the admin flag to existing accounts.
//
//	admin --email alice@example.com --role subscriber
//	admin --email root@example.com --admin
//
// --admin also grants ROLE_ADMIN_ROLE when it is set.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/gogotex/gogotex/backend/auth-service/internal/app"
	"github.com/gogotex/gogotex/backend/auth-service/internal/config"
	"github.com/gogotex/gogotex/backend/auth-service/internal/users"
	"github.com/gogotex/gogotex/backend/auth-service/pkg/logger"
)

func main() {
	email := flag.String("email", "", "account email")
	role := flag.String("role", "", "role to grant")
	admin := flag.Bool("admin", false, "set the admin flag")
	revokeAdmin := flag.Bool("revoke-admin", false, "clear the admin flag")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	if err := run(*email, *role, *admin, *revokeAdmin); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func run(email, role string, admin, revokeAdmin bool) error {
	if email == "" {
		return fmt.Errorf("--email is required")
	}
	if role == "" && !admin && !revokeAdmin {
		return fmt.Errorf("nothing to do: pass --role, --admin or --revoke-admin")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	storage, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close(ctx)

	svc := users.NewService(storage.Users)
	if err := svc.SeedRoles(ctx, cfg.Roles.Initial); err != nil {
		return err
	}
	u, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}
	if role != "" {
		if err := svc.AssignRole(ctx, u.ID, role); err != nil {
			return fmt.Errorf("assign %s: %w", role, err)
		}
		logger.Infof("granted role %s to %s", role, u.Email)
	}
	switch {
	case revokeAdmin:
		if _, err := svc.SetAdminByEmail(ctx, email, false); err != nil {
			return err
		}
		logger.Infof("admin flag of %s cleared", u.Email)
	case admin:
		if _, err := svc.GrantAdmin(ctx, email, cfg.Roles.AdminRole); err != nil {
			return err
		}
		logger.Infof("%s is now an admin (role %q)", u.Email, cfg.Roles.AdminRole)
	}
	return nil
}
