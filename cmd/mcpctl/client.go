package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type clientItem struct {
	ClientID                string    `json:"client_id" yaml:"client_id"`
	Name                    string    `json:"client_name" yaml:"client_name"`
	RedirectURIs            []string  `json:"redirect_uris" yaml:"redirect_uris"`
	Scope                   string    `json:"scope" yaml:"scope"`
	TokenEndpointAuthMethod string    `json:"token_endpoint_auth_method" yaml:"token_endpoint_auth_method"`
	ClientSecret            string    `json:"client_secret,omitempty" yaml:"client_secret,omitempty"`
	CreatedAt               time.Time `json:"created_at" yaml:"created_at"`
}

func newClientCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "client",
		Aliases: []string{"clients"},
		Short:   "Manage OAuth2 clients",
	}

	var req auth.RegistrationRequest
	var public bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Register an OAuth2 client and print its secret once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if public {
				req.TokenEndpointAuthMethod = models.AuthMethodNone
			}
			return withStore(func(db *gorm.DB, store *services.CredentialStore) error {
				oauth := auth.NewOAuthService(auth.NewIssuer(store, auth.IssuerConfig{}), services.NewClientService(db), store.McpTokens, nil)
				resp, oerr := oauth.RegisterClient(cmd.Context(), req, nil)
				if oerr != nil {
					return oerr
				}
				item := clientItem{
					ClientID:                resp.ClientID,
					Name:                    resp.ClientName,
					RedirectURIs:            resp.RedirectURIs,
					Scope:                   resp.Scope,
					TokenEndpointAuthMethod: resp.TokenEndpointAuthMethod,
					ClientSecret:            resp.ClientSecret,
					CreatedAt:               time.Unix(resp.ClientIDIssuedAt, 0).UTC(),
				}
				return render(cmd.OutOrStdout(), opts.output, item, func() tableData {
					return tableData{
						header: table.Row{"Client ID", "Name", "Secret", "Redirect URIs"},
						rows: []table.Row{{
							item.ClientID, item.Name, orDash(item.ClientSecret), strings.Join(item.RedirectURIs, "\n"),
						}},
					}
				})
			})
		},
	}
	create.Flags().StringVar(&req.ClientName, "name", "", "Client name")
	create.Flags().StringSliceVar(&req.RedirectURIs, "redirect-uri", nil, "Allowed redirect URI (repeatable)")
	create.Flags().StringSliceVar(&req.GrantTypes, "grant-type", []string{"authorization_code", "refresh_token"}, "Grant types")
	create.Flags().StringVar(&req.Scope, "scope", "", "Space separated scopes (default: all)")
	create.Flags().BoolVar(&public, "public", false, "Public client without a secret; PKCE is required")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("redirect-uri")

	list := &cobra.Command{
		Use:   "list",
		Short: "List OAuth2 clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *gorm.DB, _ *services.CredentialStore) error {
				clients, err := services.NewClientService(db).ListClients(cmd.Context())
				if err != nil {
					return err
				}
				items := make([]clientItem, 0, len(clients))
				for _, c := range clients {
					items = append(items, clientItem{
						ClientID:                c.ID,
						Name:                    c.Name,
						RedirectURIs:            c.RedirectURIs,
						Scope:                   c.Scope,
						TokenEndpointAuthMethod: c.TokenEndpointAuthMethod,
						CreatedAt:               c.CreatedAt,
					})
				}
				return render(cmd.OutOrStdout(), opts.output, items, func() tableData {
					td := tableData{header: table.Row{"Client ID", "Name", "Auth method", "Scope", "Created"}}
					for _, c := range items {
						td.rows = append(td.rows, table.Row{c.ClientID, c.Name, c.TokenEndpointAuthMethod, c.Scope, formatTime(&c.CreatedAt)})
					}
					return td
				})
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <client-id>",
		Short: "Delete an OAuth2 client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(db *gorm.DB, _ *services.CredentialStore) error {
				err := services.NewClientService(db).DeleteClient(cmd.Context(), args[0])
				if errors.Is(err, services.ErrNotFound) {
					return fmt.Errorf("client %s not found", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Client %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
