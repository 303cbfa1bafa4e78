package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
	"github.com/islandman/hotel-listing/internal/core/service"
)

// withAuth opens the identity store and runs fn against an AuthService.
func withAuth(ctx context.Context, rt *cliState, fn func(*service.AuthService) error) error {
	var hooks cleanup
	defer hooks.run(context.Background())

	store, err := openStore(ctx, rt.cfg, rt.log, rt.cfg.DB.AutoMigrate)
	if err != nil {
		return err
	}
	hooks.add(func(context.Context) { _ = store.Close() })

	principals, _, err := openIdentityStore(ctx, rt.cfg, store, rt.log, &hooks)
	if err != nil {
		return err
	}
	auth, _, err := newAuthService(rt.cfg, principals)
	if err != nil {
		return err
	}
	return fn(auth)
}

func newUserCmd(rt *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage principals",
	}

	var (
		in    ports.RegisterInput
		admin bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a principal, optionally with the Administrator role",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.UserName == "" || in.Password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			in.Roles = []string{domain.RoleUser}
			if admin {
				in.Roles = append(in.Roles, domain.RoleAdministrator)
			}
			return withAuth(cmd.Context(), rt, func(auth *service.AuthService) error {
				p, err := auth.Register(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", p.ID, p.UserName, p.Roles)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.UserName, "username", "", "login name")
	create.Flags().StringVar(&in.Email, "email", "", "e-mail address")
	create.Flags().StringVar(&in.Password, "password", "", "initial password")
	create.Flags().StringVar(&in.FirstName, "first-name", "", "given name")
	create.Flags().StringVar(&in.LastName, "last-name", "", "family name")
	create.Flags().BoolVar(&admin, "admin", false, "also grant Administrator")

	var roles []string
	grant := &cobra.Command{
		Use:   "grant <principal-id>",
		Short: "Grant roles to an existing principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), rt, func(auth *service.AuthService) error {
				return auth.AssignRoles(cmd.Context(), args[0], roles...)
			})
		},
	}
	grant.Flags().StringSliceVar(&roles, "role", []string{domain.RoleAdministrator}, "role to grant (repeatable)")

	cmd.AddCommand(create, grant)
	return cmd
}
