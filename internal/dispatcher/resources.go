package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	pageURIScheme    = "page://"
	pageResourceMIME = "text/markdown"
)

func pageURI(id uint) string {
	return pageURIScheme + strconv.FormatUint(uint64(id), 10)
}

// parsePageURI extracts the page ID from page://<id>.
func parsePageURI(uri string) (uint, bool) {
	rest, ok := strings.CutPrefix(uri, pageURIScheme)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// renderPage is the markdown document served for a page resource.
func renderPage(p *models.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Content != "" {
		b.WriteString(p.Content)
		if !strings.HasSuffix(p.Content, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func requireReadScope(call Call) error {
	if !call.hasScope(services.ScopeRead) {
		return &rpcError{code: mcp.INVALID_REQUEST, message: "insufficient_scope: resources require the " + services.ScopeRead + " scope"}
	}
	return nil
}

func (d *Dispatcher) listResources(ctx context.Context, call Call) (any, error) {
	if err := requireReadScope(call); err != nil {
		return nil, err
	}
	pages, err := d.pages.ListPages(ctx, call.siteID())
	if err != nil {
		return nil, err
	}

	resources := make([]mcp.Resource, 0, len(pages))
	for _, p := range pages {
		resources = append(resources, mcp.NewResource(pageURI(p.ID), p.Title,
			mcp.WithResourceDescription(p.Path),
			mcp.WithMIMEType(pageResourceMIME),
		))
	}
	return &mcp.ListResourcesResult{Resources: resources}, nil
}

func (d *Dispatcher) readResource(ctx context.Context, call Call, params json.RawMessage) (any, error) {
	if err := requireReadScope(call); err != nil {
		return nil, err
	}
	var p mcp.ReadResourceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	id, ok := parsePageURI(p.URI)
	if !ok {
		return nil, invalidParams("Unknown resource: %s", p.URI)
	}

	page, err := d.pages.GetPage(ctx, call.siteID(), id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, invalidParams("Resource not found: %s", p.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      p.URI,
				MIMEType: pageResourceMIME,
				Text:     renderPage(page),
			},
		},
	}, nil
}
