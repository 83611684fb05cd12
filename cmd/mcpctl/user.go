package main

import (
	"fmt"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type userItem struct {
	ID    uint   `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Role  string `json:"role" yaml:"role"`
}

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email, name, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user who can log in to approve agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != models.RoleAdmin && role != models.RoleUser {
				return fmt.Errorf("invalid role %q (valid: %s, %s)", role, models.RoleAdmin, models.RoleUser)
			}
			return withStore(func(db *gorm.DB, _ *services.CredentialStore) error {
				user := &models.User{Email: email, Name: name, Role: role}
				if err := user.SetPassword(password); err != nil {
					return err
				}
				if err := services.NewUserService(db).CreateUser(cmd.Context(), user); err != nil {
					return err
				}
				item := userItem{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
				return render(cmd.OutOrStdout(), opts.output, item, func() tableData {
					return tableData{
						header: table.Row{"ID", "Email", "Name", "Role"},
						rows:   []table.Row{{item.ID, item.Email, item.Name, item.Role}},
					}
				})
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "Login email")
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&password, "password", "", "Login password")
	create.Flags().StringVar(&role, "role", models.RoleUser, "Role: admin or user")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
