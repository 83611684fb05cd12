package main

import (
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type tokenItem struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	SiteID     uint       `json:"site_id" yaml:"site_id"`
	UserID     uint       `json:"user_id" yaml:"user_id"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" yaml:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" yaml:"revoked_at,omitempty"`
	Token      string     `json:"token,omitempty" yaml:"token,omitempty"`
}

func newTokenItem(t *models.McpToken) tokenItem {
	return tokenItem{
		ID:         t.ID,
		Name:       t.Name,
		SiteID:     t.SiteID,
		UserID:     t.UserID,
		CreatedAt:  t.CreatedAt,
		LastUsedAt: t.LastUsedAt,
		RevokedAt:  t.RevokedAt,
	}
}

func tokenStatus(t tokenItem) string {
	if t.RevokedAt != nil {
		return "revoked"
	}
	return "active"
}

// findUser resolves the --user flag, an email address.
func findUser(cmd *cobra.Command, db *gorm.DB, email string) (*models.User, error) {
	user, err := services.NewUserService(db).GetUserByEmail(cmd.Context(), email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q not found", email)
	}
	return user, nil
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		Aliases: []string{"tokens", "mcp-token"},
		Short:   "Manage McpTokens",
	}

	var userEmail, name string
	var siteID uint
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an McpToken and print its secret once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := models.ValidateMcpTokenName(name); err != nil {
				return err
			}
			return withStore(func(db *gorm.DB, store *services.CredentialStore) error {
				user, err := findUser(cmd, db, userEmail)
				if err != nil {
					return err
				}
				site, err := services.NewSiteService(db).GetSiteByID(cmd.Context(), siteID)
				if err != nil {
					return err
				}
				if site == nil {
					return fmt.Errorf("site %d not found", siteID)
				}

				token, secret, err := store.McpTokens.Create(cmd.Context(), user.ID, site.ID, name)
				if err != nil {
					return err
				}
				item := newTokenItem(token)
				item.Token = secret
				return render(cmd.OutOrStdout(), opts.output, item, func() tableData {
					return tableData{
						header: table.Row{"ID", "Name", "Site", "Token"},
						rows:   []table.Row{{item.ID, item.Name, item.SiteID, item.Token}},
					}
				})
			})
		},
	}
	create.Flags().StringVar(&userEmail, "user", "", "Email of the owning user")
	create.Flags().UintVar(&siteID, "site-id", 0, "Site the token grants access to")
	create.Flags().StringVar(&name, "name", "", "Token name")
	_ = create.MarkFlagRequired("user")
	_ = create.MarkFlagRequired("site-id")
	_ = create.MarkFlagRequired("name")

	var listUser string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the McpTokens of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *gorm.DB, store *services.CredentialStore) error {
				user, err := findUser(cmd, db, listUser)
				if err != nil {
					return err
				}
				found, err := store.McpTokens.FindByUser(cmd.Context(), user.ID)
				if err != nil {
					return err
				}
				items := make([]tokenItem, 0, len(found))
				for i := range found {
					items = append(items, newTokenItem(&found[i]))
				}
				return render(cmd.OutOrStdout(), opts.output, items, func() tableData {
					td := tableData{header: table.Row{"ID", "Name", "Site", "Status", "Last used"}}
					for _, t := range items {
						td.rows = append(td.rows, table.Row{t.ID, t.Name, t.SiteID, tokenStatus(t), formatTime(t.LastUsedAt)})
					}
					return td
				})
			})
		},
	}
	list.Flags().StringVar(&listUser, "user", "", "Email of the owning user")
	_ = list.MarkFlagRequired("user")

	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an McpToken and every OAuth2 token issued under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *gorm.DB, store *services.CredentialStore) error {
				if err := store.McpTokens.Revoke(cmd.Context(), args[0], time.Now().UTC()); err != nil {
					return fmt.Errorf("revoke %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "McpToken %s revoked\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, revoke)
	return cmd
}
