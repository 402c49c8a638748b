package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/internal/bootstrap"
	"github.com/jrsteele09/takemethere/internal/config"
	"github.com/jrsteele09/takemethere/internal/logging"
)

const listPageSize = 100

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp builds the service from the environment for commands that need
// the identity provider.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	c, err := config.New()
	if err != nil {
		return err
	}
	logging.SetupWriter(cmd.ErrOrStderr(), c.GetEnv(), c.GetLogLevel())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.Build(ctx, c)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tmtctl",
		Short:         "Operator tools for Take Me There Ghana accounts",
		SilenceUsage: true,
	}
	root.AddCommand(
		newCheckPasswordCmd(),
		newRequestResetCmd(),
		newSeedUserCmd(),
		newListUsersCmd(),
	)
	return root
}

func newCheckPasswordCmd() *cobra.Command {
	var confirm string
	cmd := &cobra.Command{
		Use:   "check-password <password>",
		Short: "Check a password against the reset policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cmd.Flags().Changed("confirm") {
				err = auth.ValidateNewPassword(args[0], confirm)
			} else {
				err = auth.ValidatePasswordStrength(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "confirmation to compare with the password")
	return cmd
}

func newRequestResetCmd() *cobra.Command {
	var emailAddr, origin string
	cmd := &cobra.Command{
		Use:   "request-reset",
		Short: "Send a password reset email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				ack, err := app.Auth.RequestPasswordReset(ctx, emailAddr, origin)
				if err != nil {
					return err
				}
				if err := app.Auth.Drain(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ack)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "account email")
	cmd.Flags().StringVar(&origin, "origin", "", "origin for the reset link when SITE_URL is not set; must be an allowed origin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSeedUserCmd() *cobra.Command {
	var emailAddr, password, role string
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create an account in the local identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ValidatePasswordStrength(password); err != nil {
				return err
			}
			switch identity.Role(role) {
			case identity.RoleAdmin, identity.RoleBusinessOwner:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if app.Local == nil {
					return errors.New("seed-user needs IDENTITY_MODE=local")
				}
				u, err := app.Local.CreateUser(ctx, emailAddr, password,
					identity.Metadata{"provider": "email", "role": role},
					identity.Metadata{"role": role})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Email, u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&emailAddr, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(identity.RoleBusinessOwner), "admin or business_owner")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newListUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List accounts in the local identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if app.Local == nil {
					return errors.New("list-users needs IDENTITY_MODE=local")
				}
				var all []identity.Identity
				for offset := 0; ; offset += listPageSize {
					page, err := app.Local.ListIdentities(ctx, offset, listPageSize)
					if err != nil {
						return err
					}
					all = append(all, page...)
					if len(page) < listPageSize {
						break
					}
				}
				return printUsers(cmd.OutOrStdout(), all)
			})
		},
	}
}

func printUsers(out io.Writer, users []identity.Identity) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tROLE\tID")
	for _, u := range users {
		role := string(u.Role())
		if role == "" {
			role = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Email, role, u.ID)
	}
	return tw.Flush()
}
