package main

import (
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/config"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newSweepCmd(opts *rootOptions) *cobra.Command {
	var retention time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired codes and tokens, and McpTokens revoked before the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ *gorm.DB, store *services.CredentialStore) error {
				res, err := services.NewSweeper(store, time.Hour, retention, logrus.StandardLogger()).SweepOnce(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, res, func() tableData {
					return tableData{
						header: table.Row{"Codes", "Access tokens", "Refresh tokens", "McpTokens"},
						rows:   []table.Row{{res.Codes, res.AccessTokens, res.RefreshTokens, res.McpTokens}},
					}
				})
			})
		},
	}
	cmd.Flags().DurationVar(&retention, "retention", config.GetEnvAsType("REVOKED_TOKEN_RETENTION", 30*24*time.Hour), "Keep revoked McpTokens this long")
	return cmd
}
