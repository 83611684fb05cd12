package main

import (
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type siteItem struct {
	ID        uint      `json:"id" yaml:"id"`
	Domain    string    `json:"domain" yaml:"domain"`
	Title     string    `json:"title" yaml:"title"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

func newSiteItem(s *models.Site) siteItem {
	return siteItem{ID: s.ID, Domain: s.Domain, Title: s.Title, CreatedAt: s.CreatedAt}
}

func renderSites(cmd *cobra.Command, opts *rootOptions, items []siteItem) error {
	return render(cmd.OutOrStdout(), opts.output, items, func() tableData {
		td := tableData{header: table.Row{"ID", "Domain", "Title", "Created"}}
		for _, s := range items {
			td.rows = append(td.rows, table.Row{s.ID, s.Domain, s.Title, formatTime(&s.CreatedAt)})
		}
		return td
	})
}

func newSiteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage sites",
	}

	var domain, title string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a site and its root page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *gorm.DB, _ *services.CredentialStore) error {
				site := &models.Site{Domain: domain, Title: title}
				if err := services.NewSiteService(db).CreateSite(cmd.Context(), site); err != nil {
					return err
				}
				return renderSites(cmd, opts, []siteItem{newSiteItem(site)})
			})
		},
	}
	create.Flags().StringVar(&domain, "domain", "", "Site domain")
	create.Flags().StringVar(&title, "title", "Home", "Title of the root page")
	_ = create.MarkFlagRequired("domain")

	list := &cobra.Command{
		Use:   "list",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *gorm.DB, _ *services.CredentialStore) error {
				sites, err := services.NewSiteService(db).ListSites(cmd.Context())
				if err != nil {
					return err
				}
				items := make([]siteItem, 0, len(sites))
				for i := range sites {
					items = append(items, newSiteItem(&sites[i]))
				}
				return renderSites(cmd, opts, items)
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
