// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes othala's asset catalog to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/assetservice"
	"github.com/starford/othala/internal/index"
)

// FilterContractURI is the resource URI of the filter contract.
const FilterContractURI = "othala://filter-contract"

// Server wraps the MCP server with othala tools. Every tool acts as userID.
type Server struct {
	mcp           *server.MCPServer
	svc           *assetservice.Service
	userID        string
	defaultTeamID string
}

// New creates a new MCP server with all tools registered. defaultTeamID is
// used when a tool call omits team_id.
func New(svc *assetservice.Service, userID, defaultTeamID, version string) *Server {
	s := &Server{svc: svc, userID: userID, defaultTeamID: defaultTeamID}

	s.mcp = server.NewMCPServer(
		"Othala",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	teamArg := mcp.WithString("team_id", mcp.Description("Team id (defaults to the configured team)"))

	s.mcp.AddTool(mcp.NewTool("list_teams",
		mcp.WithDescription("List the teams the MCP user belongs to."),
	), s.listTeams)

	s.mcp.AddTool(mcp.NewTool("list_asset_types",
		mcp.WithDescription("List the asset-type hierarchy of a team with the effective (inherited) fields of every type."),
		teamArg,
		mcp.WithString("view", mcp.Description("tree (default) or flat"), mcp.Enum("tree", "flat")),
	), s.listAssetTypes)

	s.mcp.AddTool(mcp.NewTool("get_asset_type",
		mcp.WithDescription("Get one asset type with its own and effective fields."),
		teamArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Asset type id")),
	), s.getAssetType)

	s.mcp.AddTool(mcp.NewTool("search_assets",
		mcp.WithDescription("Search assets by free text and a filter expression. "+
			"Read the filter syntax via get_filter_contract first."),
		teamArg,
		mcp.WithString("query", mcp.Description("Free-text query over names and text values")),
		mcp.WithString("filter", mcp.Description(`Filter expression, e.g. "color" = "red" AND "assetTypeName" = "Food"`)),
		mcp.WithNumber("limit", mcp.Description("Maximum hits (default 20)")),
		mcp.WithNumber("offset", mcp.Description("Hits to skip")),
	), s.searchAssets)

	s.mcp.AddTool(mcp.NewTool("get_asset",
		mcp.WithDescription("Get one asset with its values and the fields of its type."),
		teamArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Asset id")),
	), s.getAsset)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag of a team. Tags form a hierarchy through parentId."),
		teamArg,
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_filter_contract",
		mcp.WithDescription("Returns the filter expression syntax accepted by search_assets."),
	), s.getFilterContract)

	s.mcp.AddResource(
		mcp.NewResource(FilterContractURI, "Filter Expression Contract",
			mcp.WithResourceDescription("Syntax and document keys of search filter expressions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFilterContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) team(req mcp.CallToolRequest) (string, error) {
	if id := req.GetString("team_id", ""); id != "" {
		return id, nil
	}
	if s.defaultTeamID == "" {
		return "", fmt.Errorf("team_id is required")
	}
	return s.defaultTeamID, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTeams(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teams, err := s.svc.ListTeams(ctx, s.userID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(teams)
}

func (s *Server) listAssetTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID, err := s.team(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetString("view", "tree") == "flat" {
		flat, err := s.svc.Flatten(ctx, s.userID, teamID, true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(flat)
	}
	tree, err := s.svc.Tree(ctx, s.userID, teamID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree)
}

func (s *Server) getAssetType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID, err := s.team(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetAssetType(ctx, s.userID, teamID, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(n)
}

func (s *Server) searchAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID, err := s.team(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.svc.Search(ctx, s.userID, teamID, index.SearchRequest{
		Query:  req.GetString("query", ""),
		Filter: req.GetString("filter", ""),
		Facets: []string{index.AllFacets},
		Limit:  req.GetInt("limit", 20),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (s *Server) getAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID, err := s.team(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.GetAsset(ctx, s.userID, teamID, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	teamID, err := s.team(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, err := s.svc.ListTags(ctx, s.userID, teamID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
}

func (s *Server) getFilterContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FilterContract), nil
}

func (s *Server) readFilterContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FilterContractURI,
			MIMEType: "text/markdown",
			Text:     FilterContract,
		},
	}, nil
}
