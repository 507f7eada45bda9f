package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/authapi/auth-service/internal/core/ports"
)

type createAdminOptions struct {
	identifier    string
	password      string
	passwordStdin bool
	firstName     string
	lastName      string
}

// NewCreateAdminCmd creates the create-admin subcommand. Admin accounts are
// never created over HTTP.
func NewCreateAdminCmd() *cobra.Command {
	opts := &createAdminOptions{}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with the Admin role",
		Long: `Create a user with the Admin role in the configured store. Prefer
--password-stdin so the password does not appear in the process list.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.identifier, "identifier", "", "email or username of the admin")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password")
	cmd.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	cmd.Flags().StringVar(&opts.firstName, "firstname", "", "optional first name")
	cmd.Flags().StringVar(&opts.lastName, "lastname", "", "optional last name")
	_ = cmd.MarkFlagRequired("identifier")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func runCreateAdmin(cmd *cobra.Command, opts *createAdminOptions) error {
	password := opts.password
	if opts.passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	ctx := cmd.Context()
	cfg, log, err := loadRuntime(ctx)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	user, err := a.service.CreateAdmin(ctx, ports.RegisterInput{
		Identifier: opts.identifier,
		Password:   password,
		FirstName:  opts.firstName,
		LastName:   opts.lastName,
	})
	if err != nil {
		return oops.Code("CREATE_ADMIN_FAILED").With("identifier", opts.identifier).Wrap(err)
	}

	cmd.Printf("Created admin %s (id %s)\n", user.Identifier, user.ID)
	return nil
}
