package tools

import (
    "context"
    "sort"
    "strings"

    "github.com/mark3labs/mcp-go/mcp"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/shape"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

var (
    pingTool = newTool("lightdash_ping", "Ping Lightdash",
        "Test connectivity to the Lightdash instance. Returns server status and basic org info.")

    listProjectsTool = newTool("lightdash_list_projects", "List Projects",
        "List all Lightdash projects in the organization. Returns project names, UUIDs, and types.")

    listSpacesTool = newTool("lightdash_list_spaces", "List Spaces",
        "List all spaces in a Lightdash project. Returns space names, UUIDs, privacy status, and content counts.",
        projectParam,
    )

    listDashboardsTool = newTool("lightdash_list_dashboards", "List Dashboards",
        "List dashboards in a Lightdash project with optional name filter. Returns dashboard summaries.",
        projectParam,
        mcp.WithString("query",
            mcp.Description("Optional search term to filter dashboard names (case-insensitive)"),
        ),
    )

    listExploresTool = newTool("lightdash_list_explores", "List Explores",
        "List all explores (data models) in a Lightdash project. Returns explore names, labels, descriptions, tags, and error status.",
        projectParam,
    )

    getExploreTool = newTool("lightdash_get_explore", "Get Explore",
        "Describe the dimensions and metrics of an explore, grouped by table. Use the returned fieldId values with lightdash_run_raw_query.",
        projectParam,
        mcp.WithString("exploreName",
            mcp.Required(),
            mcp.Description("Name of the explore (from lightdash_list_explores)"),
        ),
    )
)

// handlePing reports the organization the API key belongs to
func (t *Toolset) handlePing(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    var org lightdash.Organization
    if err := t.api.Get(ctx, "/org", &org); err != nil {
        return nil, err
    }

    t.logger.InfoContext(ctx, "ping: connected", "organization", org.OrganizationUUID)
    return jsonResult(types.Org{
        OrganizationName: org.OrganizationName,
        OrganizationUUID: org.OrganizationUUID,
        NeedsProject:     org.NeedsProject,
    })
}

// handleListProjects lists the projects of the organization
func (t *Toolset) handleListProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    var projects []lightdash.ProjectSummary
    if err := t.api.Get(ctx, "/org/projects", &projects); err != nil {
        return nil, err
    }
    if len(projects) == 0 {
        return textResult("No projects found in this organization.")
    }

    out := make([]types.Project, len(projects))
    for i, p := range projects {
        out[i] = types.Project{UUID: p.ProjectUUID, Name: p.Name, Type: p.Type}
    }

    t.logger.InfoContext(ctx, "list_projects: found projects", "count", len(out))
    return jsonResult(out)
}

// handleListSpaces lists the spaces of a project
func (t *Toolset) handleListSpaces(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    projectUUID, err := requireID(req, "projectUuid")
    if err != nil {
        return nil, err
    }

    var spaces []lightdash.SpaceSummary
    if err := t.api.Get(ctx, pathf("/projects/%s/spaces", projectUUID), &spaces); err != nil {
        return nil, err
    }
    if len(spaces) == 0 {
        return textResult("No spaces found in project %s.", projectUUID)
    }

    out := make([]types.Space, len(spaces))
    for i, s := range spaces {
        out[i] = types.Space{
            UUID:            s.UUID,
            Name:            s.Name,
            IsPrivate:       s.IsPrivate,
            ChartCount:      s.ChartCount,
            DashboardCount:  s.DashboardCount,
            ParentSpaceUUID: s.ParentSpaceUUID,
        }
    }

    t.logger.InfoContext(ctx, "list_spaces: found spaces", "project", projectUUID, "count", len(out))
    return jsonResult(out)
}

// handleListDashboards lists dashboards, optionally filtered by name
func (t *Toolset) handleListDashboards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    projectUUID, err := requireID(req, "projectUuid")
    if err != nil {
        return nil, err
    }
    query := req.GetString("query", "")

    var dashboards []lightdash.DashboardSummary
    if err := t.api.Get(ctx, pathf("/projects/%s/dashboards", projectUUID), &dashboards); err != nil {
        return nil, err
    }

    matches := dashboards
    if query != "" {
        matches = shape.FilterByName(dashboards, query, func(d lightdash.DashboardSummary) string { return d.Name })
    }
    if len(matches) == 0 {
        if query != "" {
            return textResult("No dashboards found matching %q in project %s.", query, projectUUID)
        }
        return textResult("No dashboards found in project %s.", projectUUID)
    }

    out := make([]types.Dashboard, len(matches))
    for i, d := range matches {
        out[i] = types.Dashboard{
            UUID:        d.UUID,
            Name:        d.Name,
            Description: d.Description,
            SpaceUUID:   d.SpaceUUID,
            UpdatedAt:   d.UpdatedAt,
        }
    }

    t.logger.InfoContext(ctx, "list_dashboards: found dashboards", "project", projectUUID, "count", len(out))
    return jsonResult(out)
}

// handleListExplores lists the explores of a project with their compile status
func (t *Toolset) handleListExplores(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    projectUUID, err := requireID(req, "projectUuid")
    if err != nil {
        return nil, err
    }

    var explores []lightdash.ExploreSummary
    if err := t.api.Get(ctx, pathf("/projects/%s/explores", projectUUID), &explores); err != nil {
        return nil, err
    }
    if len(explores) == 0 {
        return textResult("No explores found in project %s.", projectUUID)
    }

    out := make([]types.ExploreSummary, len(explores))
    for i, e := range explores {
        s := types.ExploreSummary{
            Name:        e.Name,
            Label:       e.Label,
            Description: e.Description,
            Tags:        e.Tags,
            Status:      types.ExploreOK,
        }
        if len(e.Errors) > 0 {
            s.Status = types.ExploreError
            s.Errors = make([]string, len(e.Errors))
            for j, ee := range e.Errors {
                s.Errors[j] = ee.Message
            }
        }
        out[i] = s
    }

    t.logger.InfoContext(ctx, "list_explores: found explores", "project", projectUUID, "count", len(out))
    return jsonResult(out)
}

// handleGetExplore describes the visible fields of one explore
func (t *Toolset) handleGetExplore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
    projectUUID, err := requireID(req, "projectUuid")
    if err != nil {
        return nil, err
    }
    exploreName, err := requireID(req, "exploreName")
    if err != nil {
        return nil, err
    }

    var explore lightdash.Explore
    if err := t.api.Get(ctx, pathf("/projects/%s/explores/%s", projectUUID, exploreName), &explore); err != nil {
        return nil, err
    }

    detail := describeExplore(explore)
    t.logger.InfoContext(ctx, "get_explore: described explore", "explore", exploreName, "tables", len(detail.Tables))
    return jsonResult(detail)
}

// describeExplore keeps visible fields and joins only. Tables reached only
// through a hidden join are dropped with it. The base table comes
// first, the other tables and all fields are ordered by name.
func describeExplore(e lightdash.Explore) types.ExploreDetail {
    hidden := make(map[string]bool)
    for _, j := range e.JoinedTables {
        if j.Hidden && j.Table != e.BaseTable {
            hidden[j.Table] = true
        }
    }

    names := make([]string, 0, len(e.Tables))
    for name, tbl := range e.Tables {
        if hidden[name] || (tbl.Name != "" && hidden[tbl.Name]) {
            continue
        }
        names = append(names, name)
    }
    sort.Slice(names, func(i, j int) bool {
        if (names[i] == e.BaseTable) != (names[j] == e.BaseTable) {
            return names[i] == e.BaseTable
        }
        return names[i] < names[j]
    })

    tables := make([]types.ExploreTable, 0, len(names))
    for _, name := range names {
        tbl := e.Tables[name]
        if tbl.Name == "" {
            tbl.Name = name
        }
        tables = append(tables, types.ExploreTable{
            Name:        tbl.Name,
            Label:       tbl.Label,
            Description: tbl.Description,
            Dimensions:  visibleFields(tbl.Name, tbl.Dimensions),
            Metrics:     visibleFields(tbl.Name, tbl.Metrics),
        })
    }

    joins := make([]types.ExploreJoin, 0, len(e.JoinedTables))
    for _, j := range e.JoinedTables {
        if j.Hidden {
            continue
        }
        joins = append(joins, types.ExploreJoin{Table: j.Table, Type: j.Type})
    }

    return types.ExploreDetail{
        Name:      e.Name,
        Label:     e.Label,
        BaseTable: e.BaseTable,
        Tables:    tables,
        Joins:     joins,
    }
}

func visibleFields(table string, fields map[string]lightdash.Field) []types.ExploreField {
    out := make([]types.ExploreField, 0, len(fields))
    for key, f := range fields {
        if f.Hidden {
            continue
        }
        name := f.Name
        if name == "" {
            name = key
        }
        owner := f.Table
        if owner == "" {
            owner = table
        }
        out = append(out, types.ExploreField{
            FieldID:     fieldID(owner, name),
            Name:        name,
            Label:       f.Label,
            Type:        f.Type,
            Description: f.Description,
        })
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out
}

// fieldID is the identifier Lightdash uses for a field in queries and results.
func fieldID(table, name string) string {
    return table + "_" + strings.ReplaceAll(name, ".", "__")
}
