package dispatcher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

type toolHandler func(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

type toolEntry struct {
	tool    mcp.Tool
	scope   string
	handler toolHandler
}

// pageSummary is the list form of a page, without its content.
type pageSummary struct {
	ID        uint   `json:"id"`
	ParentID  *uint  `json:"parent_id,omitempty"`
	Path      string `json:"path"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
	Position  int    `json:"position"`
	HasCover  bool   `json:"has_cover"`
}

func summarize(pages []models.Page) []pageSummary {
	out := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, pageSummary{
			ID:        p.ID,
			ParentID:  p.ParentID,
			Path:      p.Path,
			Slug:      p.Slug,
			Title:     p.Title,
			Published: p.Published,
			Position:  p.Position,
			HasCover:  len(p.CoverImage) > 0,
		})
	}
	return out
}

// contentErrors are failures the caller can fix. They are reported as tool
// errors so the model sees them; anything else is an internal error.
var contentErrors = []error{
	services.ErrNotFound,
	services.ErrDuplicateKey,
	services.ErrInvalidSlug,
	services.ErrEmptyTitle,
	services.ErrRootPage,
	services.ErrPageHasChildren,
	services.ErrInvalidMove,
	services.ErrUnsupportedImage,
}

func toolError(err error) (*mcp.CallToolResult, error) {
	for _, known := range contentErrors {
		if errors.Is(err, known) {
			msg := known.Error()
			if known == services.ErrDuplicateKey {
				msg = "a page with this path already exists"
			}
			return mcp.NewToolResultError(msg), nil
		}
	}
	return nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(v)
}

func (d *Dispatcher) addTool(scope string, handler toolHandler, tool mcp.Tool) {
	d.tools[tool.Name] = toolEntry{tool: tool, scope: scope, handler: handler}
	d.catalog = append(d.catalog, tool)
}

func (d *Dispatcher) registerTools() {
	d.tools = make(map[string]toolEntry)

	d.addTool(services.ScopeRead, d.listPages, mcp.NewTool("list_pages",
		mcp.WithDescription("List every page of the site as a tree ordered by path"),
		mcp.WithReadOnlyHintAnnotation(true),
	))
	d.addTool(services.ScopeRead, d.getPage, mcp.NewTool("get_page",
		mcp.WithDescription("Get a page, including its markdown content"),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page")),
		mcp.WithReadOnlyHintAnnotation(true),
	))
	d.addTool(services.ScopeRead, d.getPageByPath, mcp.NewTool("get_page_by_path",
		mcp.WithDescription("Get a page by its path, for example /about/team"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Page path; / is the home page")),
		mcp.WithReadOnlyHintAnnotation(true),
	))
	d.addTool(services.ScopeRead, d.searchPages, mcp.NewTool("search_pages",
		mcp.WithDescription("Search page titles and content"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20, at most 100)")),
		mcp.WithReadOnlyHintAnnotation(true),
	))
	d.addTool(services.ScopeWrite, d.createPage, mcp.NewTool("create_page",
		mcp.WithDescription("Create a draft page below a parent page"),
		mcp.WithNumber("parent_id", mcp.Description("Parent page ID; defaults to the home page")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("URL segment: lowercase letters, digits and hyphens")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Page title")),
		mcp.WithString("content", mcp.Description("Markdown content")),
	))
	d.addTool(services.ScopeWrite, d.updatePage, mcp.NewTool("update_page",
		mcp.WithDescription("Change the title, content or slug of a page. Omitted fields are kept."),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New markdown content")),
		mcp.WithString("slug", mcp.Description("New slug; the paths of child pages follow")),
	))
	d.addTool(services.ScopeWrite, d.publishPage, mcp.NewTool("publish_page",
		mcp.WithDescription("Publish or unpublish a page"),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page")),
		mcp.WithBoolean("published", mcp.Description("false unpublishes the page"), mcp.DefaultBool(true)),
	))
	d.addTool(services.ScopeWrite, d.movePage, mcp.NewTool("move_page",
		mcp.WithDescription("Move a page below another parent, optionally at a position among its siblings"),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page to move")),
		mcp.WithNumber("parent_id", mcp.Required(), mcp.Description("ID of the new parent page")),
		mcp.WithNumber("position", mcp.Description("Zero based position; omitted appends")),
	))
	d.addTool(services.ScopeWrite, d.deletePage, mcp.NewTool("delete_page",
		mcp.WithDescription("Delete a page that has no child pages"),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page")),
		mcp.WithDestructiveHintAnnotation(true),
	))
	d.addTool(services.ScopeRead, d.getPageCover, mcp.NewTool("get_page_cover",
		mcp.WithDescription("Get the cover image of a page"),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page")),
		mcp.WithReadOnlyHintAnnotation(true),
	))
	d.addTool(services.ScopeWrite, d.setPageCover, mcp.NewTool("set_page_cover",
		mcp.WithDescription("Set or clear the cover image of a page"),
		mcp.WithNumber("page_id", mcp.Required(), mcp.Description("ID of the page")),
		mcp.WithString("data", mcp.Description("Base64 encoded image; empty clears the cover")),
		mcp.WithString("mime_type", mcp.Description("image/png, image/jpeg, image/gif or image/webp")),
	))
}

func (d *Dispatcher) callTool(ctx context.Context, call Call, params json.RawMessage) (any, error) {
	var p mcp.CallToolParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, invalidParams("Invalid params: tool name is required")
	}
	entry, ok := d.tools[p.Name]
	if !ok {
		return nil, invalidParams("Unknown tool: %s", p.Name)
	}
	if p.Arguments != nil {
		if _, isMap := p.Arguments.(map[string]any); !isMap {
			return nil, invalidParams("Invalid params: arguments must be an object")
		}
	}

	if !call.hasScope(entry.scope) {
		log.WithFields(logrus.Fields{
			"tool":  p.Name,
			"scope": entry.scope,
		}).Info("Tool call rejected for missing scope")
		return mcp.NewToolResultError(fmt.Sprintf("insufficient_scope: %s requires the %s scope", p.Name, entry.scope)), nil
	}

	req := mcp.CallToolRequest{Params: p}
	req.Method = MethodToolsCall
	result, err := entry.handler(ctx, call.siteID(), req)
	if err != nil {
		return toolError(err)
	}
	return result, nil
}

// requireID reads a positive integer argument.
func requireID(req mcp.CallToolRequest, key string) (uint, *mcp.CallToolResult) {
	v, err := req.RequireFloat(key)
	if err != nil {
		return 0, mcp.NewToolResultError(err.Error())
	}
	if v < 1 || v != float64(uint(v)) {
		return 0, mcp.NewToolResultError(fmt.Sprintf("%s must be a positive integer", key))
	}
	return uint(v), nil
}

func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func (d *Dispatcher) listPages(ctx context.Context, siteID uint, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := d.pages.ListPages(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return jsonResult(summarize(pages))
}

func (d *Dispatcher) getPage(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	page, err := d.pages.GetPage(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return mcp.NewToolResultError(fmt.Sprintf("page %d not found", id)), nil
	}
	return jsonResult(page)
}

func (d *Dispatcher) getPageByPath(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := d.pages.GetPageByPath(ctx, siteID, path)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no page at %s", services.NormalizePath(path))), nil
	}
	return jsonResult(page)
}

func (d *Dispatcher) searchPages(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pages, err := d.pages.SearchPages(ctx, siteID, query, req.GetInt("limit", 0))
	if err != nil {
		return nil, err
	}
	return jsonResult(summarize(pages))
}

func (d *Dispatcher) createPage(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := services.CreatePageInput{
		Slug:    req.GetString("slug", ""),
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
	}
	if _, ok := req.GetArguments()["parent_id"]; ok {
		parentID, bad := requireID(req, "parent_id")
		if bad != nil {
			return bad, nil
		}
		in.ParentID = &parentID
	}
	page, err := d.pages.CreatePage(ctx, siteID, in)
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

func (d *Dispatcher) updatePage(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	in := services.UpdatePageInput{
		Title:   optionalString(req, "title"),
		Content: optionalString(req, "content"),
		Slug:    optionalString(req, "slug"),
	}
	if in.Title == nil && in.Content == nil && in.Slug == nil {
		return mcp.NewToolResultError("nothing to update: pass title, content or slug"), nil
	}
	page, err := d.pages.UpdatePage(ctx, siteID, id, in)
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

func (d *Dispatcher) publishPage(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	page, err := d.pages.PublishPage(ctx, siteID, id, req.GetBool("published", true), d.now())
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

func (d *Dispatcher) movePage(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	parentID, bad := requireID(req, "parent_id")
	if bad != nil {
		return bad, nil
	}
	page, err := d.pages.MovePage(ctx, siteID, id, parentID, req.GetInt("position", -1))
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

func (d *Dispatcher) deletePage(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	if err := d.pages.DeletePage(ctx, siteID, id); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("page %d deleted", id)), nil
}

func (d *Dispatcher) getPageCover(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	page, err := d.pages.GetPage(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return mcp.NewToolResultError(fmt.Sprintf("page %d not found", id)), nil
	}
	if len(page.CoverImage) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("page %d has no cover image", id)), nil
	}
	return mcp.NewToolResultImage(
		fmt.Sprintf("cover image of %s", page.Path),
		base64.StdEncoding.EncodeToString(page.CoverImage),
		page.CoverMimeType,
	), nil
}

func (d *Dispatcher) setPageCover(ctx context.Context, siteID uint, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req, "page_id")
	if bad != nil {
		return bad, nil
	}
	data, err := base64.StdEncoding.DecodeString(req.GetString("data", ""))
	if err != nil {
		return mcp.NewToolResultError("data is not valid base64"), nil
	}
	page, err := d.pages.SetCover(ctx, siteID, id, data, req.GetString("mime_type", ""))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("cover image of page %d cleared", page.ID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("cover image of page %d set (%s, %d bytes)", page.ID, page.CoverMimeType, len(data))), nil
}
