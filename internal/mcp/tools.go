package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchCustomerTool defines the search_customer MCP tool.
var searchCustomerTool = mcp.NewTool("search_customer",
	mcp.WithDescription("Search salon customers by name or phone number. Returns matching customer records."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Name or phone number keyword"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

// getCustomerDetailTool defines the get_customer_detail MCP tool.
var getCustomerDetailTool = mcp.NewTool("get_customer_detail",
	mcp.WithDescription("Get a customer's full record including nail profile and preferences."),
	mcp.WithString("customer_id",
		mcp.Required(),
		mcp.Description("Customer ID"),
	),
)

// getAbilitySummaryTool defines the get_ability_summary MCP tool.
var getAbilitySummaryTool = mcp.NewTool("get_ability_summary",
	mcp.WithDescription("Get the artist's skill summary: strengths, improvement areas and per-dimension averages."),
)

// listInspirationsTool defines the list_inspirations MCP tool.
var listInspirationsTool = mcp.NewTool("list_inspirations",
	mcp.WithDescription("List saved inspiration images, optionally filtered by keyword or category."),
	mcp.WithString("search",
		mcp.Description("Keyword matched against title and tags"),
	),
	mcp.WithString("category",
		mcp.Description("Exact category filter"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)
