package tools

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/mark3labs/mcp-go/mcp"
    "github.com/mark3labs/mcp-go/server"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/apierr"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/internal/lightdash"
    "github.com/IBM/mcp-context-forge/mcp-servers/go/lightdash-server/pkg/types"
)

// fakeLightdash serves canned envelopes for the routes a test registers.
func fakeLightdash(t *testing.T, routes map[string]http.HandlerFunc, opts ...Option) *Toolset {
    t.Helper()
    mux := http.NewServeMux()
    for pattern, h := range routes {
        mux.HandleFunc(pattern, h)
    }
    srv := httptest.NewServer(mux)
    t.Cleanup(srv.Close)

    client, err := lightdash.New(lightdash.Config{
        BaseURL:    srv.URL,
        APIKey:     "ldpat_secret",
        HTTPClient: srv.Client(),
        Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
    })
    require.NoError(t, err)
    return New(client, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

// ok writes results inside the {status, results} envelope.
func ok(results string) http.HandlerFunc {
    return func(w http.ResponseWriter, _ *http.Request) {
        w.Header().Set("Content-Type", "application/json")
        fmt.Fprintf(w, `{"status":"ok","results":%s}`, results)
    }
}

func fail(status int, body string) http.HandlerFunc {
    return func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(status)
        _, _ = io.WriteString(w, body)
    }
}

func call(t *testing.T, ts *Toolset, name string, args map[string]any) *mcp.CallToolResult {
    t.Helper()
    for _, st := range ts.Tools() {
        if st.Tool.Name != name {
            continue
        }
        req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
        res, err := st.Handler(context.Background(), req)
        require.NoError(t, err, "tool errors must never cross the MCP boundary")
        require.NotNil(t, res)
        return res
    }
    t.Fatalf("tool %s not registered", name)
    return nil
}

func firstText(t *testing.T, res *mcp.CallToolResult) string {
    t.Helper()
    require.NotEmpty(t, res.Content)
    tc, ok := mcp.AsTextContent(res.Content[0])
    require.True(t, ok, "expected text content")
    return tc.Text
}

func decodeText[T any](t *testing.T, res *mcp.CallToolResult) T {
    t.Helper()
    require.False(t, res.IsError, "unexpected error result: %s", firstText(t, res))
    var v T
    require.NoError(t, json.Unmarshal([]byte(firstText(t, res)), &v))
    return v
}

func rowsJSON(n int) string {
    rows := make([]string, n)
    for i := range rows {
        rows[i] = fmt.Sprintf(`{"orders_status":{"value":{"raw":"s%d","formatted":"S%d"}},"orders_count":{"value":{"raw":%d,"formatted":"%d"}}}`, i, i, i, i)
    }
    return "[" + strings.Join(rows, ",") + "]"
}

func TestToolsRegistered(t *testing.T) {
    ts := New(nil, nil)
    tools := ts.Tools()

    want := []string{
        "lightdash_ping",
        "lightdash_list_projects",
        "lightdash_list_spaces",
        "lightdash_search_charts",
        "lightdash_get_chart",
        "lightdash_get_chart_results",
        "lightdash_list_dashboards",
        "lightdash_list_explores",
        "lightdash_get_explore",
        "lightdash_run_raw_query",
    }
    require.Len(t, tools, len(want))

    for i, st := range tools {
        assert.Equal(t, want[i], st.Tool.Name)
        assert.NotEmpty(t, st.Tool.Description)
        require.NotNil(t, st.Tool.Annotations.ReadOnlyHint)
        assert.True(t, *st.Tool.Annotations.ReadOnlyHint, st.Tool.Name)
        require.NotNil(t, st.Tool.Annotations.DestructiveHint)
        assert.False(t, *st.Tool.Annotations.DestructiveHint, st.Tool.Name)
        assert.NotNil(t, st.Handler)
    }
}

func TestToolsAreGuarded(t *testing.T) {
    // a nil API makes every upstream call panic
    ts := New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
    var s server.ServerTool
    for _, st := range ts.Tools() {
        if st.Tool.Name == "lightdash_ping" {
            s = st
        }
    }

    res, err := s.Handler(context.Background(), mcp.CallToolRequest{})
    require.NoError(t, err)
    assert.True(t, res.IsError)
}

func TestPing(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/org": ok(`{"organizationUuid":"org-1","name":"Acme","organizationName":"Acme","needsProject":true,"chartColors":["#000"]}`),
    })

    got := decodeText[map[string]any](t, call(t, ts, "lightdash_ping", nil))
    assert.Equal(t, map[string]any{
        "organizationName": "Acme",
        "organizationUuid": "org-1",
        "needsProject":     true,
    }, got)
}

func TestListProjects(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/org/projects": ok(`[{"projectUuid":"p-1","name":"Jaffle","type":"DEFAULT","createdByUserUuid":"u-1"}]`),
    })

    got := decodeText[[]types.Project](t, call(t, ts, "lightdash_list_projects", nil))
    assert.Equal(t, []types.Project{{UUID: "p-1", Name: "Jaffle", Type: "DEFAULT"}}, got)
}

func TestEmptyListMessages(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/org/projects":            ok(`[]`),
        "GET /api/v1/projects/p-1/spaces":     ok(`[]`),
        "GET /api/v1/projects/p-1/dashboards": ok(`[{"uuid":"d-1","name":"Sales"}]`),
        "GET /api/v1/projects/p-2/dashboards": ok(`[]`),
        "GET /api/v1/projects/p-1/explores":   ok(`[]`),
    })

    tests := []struct {
        tool string
        args map[string]any
        want string
    }{
        {"lightdash_list_projects", nil, "No projects found in this organization."},
        {"lightdash_list_spaces", map[string]any{"projectUuid": "p-1"}, "No spaces found in project p-1."},
        {"lightdash_list_dashboards", map[string]any{"projectUuid": "p-1", "query": "zzz"}, `No dashboards found matching "zzz" in project p-1.`},
        {"lightdash_list_dashboards", map[string]any{"projectUuid": "p-2"}, "No dashboards found in project p-2."},
        {"lightdash_list_explores", map[string]any{"projectUuid": "p-1"}, "No explores found in project p-1."},
    }

    for _, tt := range tests {
        t.Run(tt.want, func(t *testing.T) {
            res := call(t, ts, tt.tool, tt.args)
            assert.False(t, res.IsError)
            assert.Equal(t, tt.want, firstText(t, res))
        })
    }
}

func TestListSpaces(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/projects/p-1/spaces": ok(`[
            {"uuid":"s-1","name":"Shared","isPrivate":false,"chartCount":3,"dashboardCount":1,"parentSpaceUuid":null,"access":["x"]},
            {"uuid":"s-2","name":"Nested","isPrivate":true,"chartCount":0,"dashboardCount":0,"parentSpaceUuid":"s-1"}
        ]`),
    })

    res := call(t, ts, "lightdash_list_spaces", map[string]any{"projectUuid": "p-1"})
    got := decodeText[[]map[string]any](t, res)
    require.Len(t, got, 2)
    assert.Nil(t, got[0]["parentSpaceUuid"])
    assert.Equal(t, "s-1", got[1]["parentSpaceUuid"])
    assert.NotContains(t, got[0], "access")
    assert.Equal(t, float64(3), got[0]["chartCount"])
}

func TestSearchCharts(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/projects/p-1/charts": ok(`[
            {"uuid":"c-1","name":"Monthly Revenue","spaceName":"Finance","chartType":"cartesian","chartKind":"line","updatedAt":"2024-01-01T00:00:00Z","slug":"monthly-revenue","spaceUuid":"s-1"},
            {"uuid":"c-2","name":"Cost report","spaceName":"Finance","chartType":"table","chartKind":"table","updatedAt":"2024-01-02T00:00:00Z","slug":"cost-report"},
            {"uuid":"c-3","name":"revenue by region","spaceName":"Sales","chartType":null,"chartKind":null,"updatedAt":"2024-01-03T00:00:00Z","slug":"rbr"}
        ]`),
    })

    t.Run("matches case-insensitively", func(t *testing.T) {
        res := call(t, ts, "lightdash_search_charts", map[string]any{"projectUuid": "p-1", "query": "Revenue"})
        got := decodeText[[]types.ChartSummary](t, res)
        require.Len(t, got, 2)
        assert.Equal(t, "c-1", got[0].UUID)
        assert.Equal(t, "c-3", got[1].UUID)
        assert.Nil(t, got[1].ChartType)
    })

    t.Run("no matches is not an error", func(t *testing.T) {
        res := call(t, ts, "lightdash_search_charts", map[string]any{"projectUuid": "p-1", "query": "zzz"})
        assert.False(t, res.IsError)
        assert.Equal(t,
            `No charts found matching "zzz" in project p-1. Try a broader search term or use lightdash_list_spaces to browse by space.`,
            firstText(t, res))
    })

    t.Run("only allow-listed fields", func(t *testing.T) {
        res := call(t, ts, "lightdash_search_charts", map[string]any{"projectUuid": "p-1", "query": "cost"})
        got := decodeText[[]map[string]any](t, res)
        require.Len(t, got, 1)
        assert.NotContains(t, got[0], "spaceUuid")
        assert.Len(t, got[0], 7)
    })
}

func TestListDashboards(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/projects/p-1/dashboards": ok(`[
            {"uuid":"d-1","name":"Sales Overview","description":"weekly","spaceUuid":"s-1","updatedAt":"2024-02-01T00:00:00Z","views":12},
            {"uuid":"d-2","name":"Marketing","description":null,"spaceUuid":"s-2","updatedAt":"2024-02-02T00:00:00Z"}
        ]`),
    })

    res := call(t, ts, "lightdash_list_dashboards", map[string]any{"projectUuid": "p-1"})
    all := decodeText[[]types.Dashboard](t, res)
    require.Len(t, all, 2)
    assert.Nil(t, all[1].Description)

    res = call(t, ts, "lightdash_list_dashboards", map[string]any{"projectUuid": "p-1", "query": "SALES"})
    got := decodeText[[]map[string]any](t, res)
    require.Len(t, got, 1)
    assert.Equal(t, "d-1", got[0]["uuid"])
    assert.NotContains(t, got[0], "views")
}

func TestGetChart(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/saved/c-1": ok(`{
            "uuid":"c-1","name":"Monthly Revenue","description":null,"tableName":"orders","spaceName":"Finance",
            "chartConfig":{"type":"cartesian","config":{"layout":{}}},
            "metricQuery":{"exploreName":"orders","dimensions":["orders_month"],"metrics":["orders_revenue"],
                "filters":{"dimensions":{"id":"f","and":[]}},"sorts":[{"fieldId":"orders_month","descending":false}],
                "limit":500,"tableCalculations":[],"additionalMetrics":[]},
            "pinnedListUuid":null
        }`),
    })

    got := decodeText[map[string]any](t, call(t, ts, "lightdash_get_chart", map[string]any{"chartUuid": "c-1"}))
    assert.Equal(t, "cartesian", got["chartType"])
    assert.Nil(t, got["description"])
    assert.NotContains(t, got, "chartConfig")
    assert.NotContains(t, got, "pinnedListUuid")

    mq, isMap := got["metricQuery"].(map[string]any)
    require.True(t, isMap)
    assert.ElementsMatch(t, []string{"dimensions", "metrics", "filters", "sorts", "limit"}, keys(mq))
    assert.Equal(t, float64(500), mq["limit"])
}

func keys(m map[string]any) []string {
    out := make([]string, 0, len(m))
    for k := range m {
        out = append(out, k)
    }
    return out
}

func TestGetChartResults(t *testing.T) {
    var gotBody string
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "POST /api/v1/saved/c-1/results": func(w http.ResponseWriter, r *http.Request) {
            raw, _ := io.ReadAll(r.Body)
            gotBody = string(raw)
            ok(`{"rows":` + rowsJSON(600) + `,"fields":{"orders_status":{},"orders_count":{}}}`)(w, r)
        },
    })

    got := decodeText[types.QueryResults](t, call(t, ts, "lightdash_get_chart_results", map[string]any{"chartUuid": "c-1"}))
    assert.JSONEq(t, `{}`, gotBody)
    assert.Equal(t, []string{"orders_status", "orders_count"}, got.Columns)
    assert.Len(t, got.Rows, 500)
    assert.Equal(t, 600, got.RowCount)
    assert.True(t, got.Truncated)
    assert.Equal(t, "Showing 500 of 600 rows", got.Message)
    assert.Equal(t, "s0", got.Rows[0]["orders_status"])
    assert.Equal(t, float64(499), got.Rows[499]["orders_count"])
}

func TestChartResultsUnderCapHasNoTruncationKeys(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "POST /api/v1/saved/c-1/results": ok(`{"rows":` + rowsJSON(10) + `,"fields":{"orders_status":{},"orders_count":{}}}`),
    })

    res := call(t, ts, "lightdash_get_chart_results", map[string]any{"chartUuid": "c-1"})
    got := decodeText[map[string]any](t, res)
    assert.Equal(t, float64(10), got["rowCount"])
    assert.NotContains(t, got, "truncated")
    assert.NotContains(t, got, "message")
}

func TestRunRawQuery(t *testing.T) {
    var (
        gotPath string
        gotBody map[string]any
    )
    handler := func(w http.ResponseWriter, r *http.Request) {
        gotPath = r.URL.EscapedPath()
        gotBody = map[string]any{}
        assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
        ok(`{"rows":` + rowsJSON(2) + `,"fields":{"orders_count":{},"orders_status":{}}}`)(w, r)
    }
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "POST /api/v1/projects/{project}/explores/{explore}/runQuery": handler,
    })

    t.Run("limit above max is clamped before dispatch", func(t *testing.T) {
        res := call(t, ts, "lightdash_run_raw_query", map[string]any{
            "projectUuid": "p-1",
            "exploreName": "orders",
            "dimensions":  []any{"orders_status"},
            "metrics":     []any{"orders_count"},
            "limit":       float64(9000),
        })
        got := decodeText[types.QueryResults](t, res)
        assert.Equal(t, float64(5000), gotBody["limit"])
        assert.Equal(t, []string{"orders_count", "orders_status"}, got.Columns)
        assert.Equal(t, 2, got.RowCount)
        assert.False(t, got.Truncated)
    })

    t.Run("defaults", func(t *testing.T) {
        call(t, ts, "lightdash_run_raw_query", map[string]any{
            "projectUuid": "p-1",
            "exploreName": "orders",
            "dimensions":  []any{"orders_status"},
            "metrics":     []any{},
        })
        assert.Equal(t, float64(DefaultQueryLimit), gotBody["limit"])
        assert.Equal(t, map[string]any{}, gotBody["filters"])
        assert.Equal(t, []any{}, gotBody["sorts"])
        assert.Equal(t, []any{}, gotBody["tableCalculations"])
        assert.Equal(t, "orders", gotBody["exploreName"])
    })

    t.Run("filters and sorts pass through", func(t *testing.T) {
        filters := map[string]any{
            "dimensions": map[string]any{
                "id":  "root",
                "and": []any{map[string]any{"id": "f1", "target": map[string]any{"fieldId": "orders_status"}, "operator": "equals", "values": []any{"shipped"}}},
            },
        }
        call(t, ts, "lightdash_run_raw_query", map[string]any{
            "projectUuid": "p-1",
            "exploreName": "orders",
            "dimensions":  []any{"orders_status"},
            "metrics":     []any{"orders_count"},
            "filters":     filters,
            "sorts":       []any{map[string]any{"fieldId": "orders_count", "descending": true}},
            "limit":       float64(10),
        })
        assert.Equal(t, filters, gotBody["filters"])
        assert.Equal(t, []any{map[string]any{"fieldId": "orders_count", "descending": true}}, gotBody["sorts"])
        assert.Equal(t, float64(10), gotBody["limit"])
    })

    t.Run("explore name is escaped", func(t *testing.T) {
        call(t, ts, "lightdash_run_raw_query", map[string]any{
            "projectUuid": "p-1",
            "exploreName": "my explore",
            "dimensions":  []any{},
            "metrics":     []any{"orders_count"},
        })
        assert.Equal(t, "/api/v1/projects/p-1/explores/my%20explore/runQuery", gotPath)
    })

    t.Run("invalid sorts", func(t *testing.T) {
        res := call(t, ts, "lightdash_run_raw_query", map[string]any{
            "projectUuid": "p-1",
            "exploreName": "orders",
            "dimensions":  []any{},
            "metrics":     []any{},
            "sorts":       []any{map[string]any{"descending": true}},
        })
        assert.True(t, res.IsError)
        assert.Contains(t, firstText(t, res), "invalid sorts")
    })
}

func TestClampLimit(t *testing.T) {
    tests := []struct {
        in, want int
    }{
        {0, DefaultQueryLimit},
        {-5, DefaultQueryLimit},
        {1, 1},
        {500, 500},
        {5000, 5000},
        {5001, MaxQueryLimit},
        {9000, MaxQueryLimit},
    }
    for _, tt := range tests {
        if got := ClampLimit(tt.in); got != tt.want {
            t.Errorf("ClampLimit(%d) = %d, expected %d", tt.in, got, tt.want)
        }
    }
}

func TestListExplores(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/projects/p-1/explores": ok(`[
            {"name":"orders","label":"Orders","description":"All orders","tags":["core"],"databaseName":"db"},
            {"name":"broken","label":"Broken","tags":[],"errors":[{"type":"COMPILE","message":"field missing"},{"type":"SQL","message":"bad join"}]}
        ]`),
    })

    got := decodeText[[]types.ExploreSummary](t, call(t, ts, "lightdash_list_explores", map[string]any{"projectUuid": "p-1"}))
    require.Len(t, got, 2)
    assert.Equal(t, types.ExploreOK, got[0].Status)
    assert.Empty(t, got[0].Errors)
    assert.Equal(t, types.ExploreError, got[1].Status)
    assert.Equal(t, []string{"field missing", "bad join"}, got[1].Errors)
}

func TestGetExplore(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/projects/p-1/explores/orders": ok(`{
            "name":"orders","label":"Orders","baseTable":"orders",
            "joinedTables":[{"table":"customers","type":"left"},{"table":"secret","hidden":true}],
            "tables":{
                "customers":{"name":"customers","label":"Customers","sqlTable":"db.customers",
                    "dimensions":{"name":{"name":"name","label":"Name","type":"string","table":"customers","sql":"${TABLE}.name"}},
                    "metrics":{}},
                "secret":{"name":"secret","label":"Secret",
                    "dimensions":{"ssn":{"name":"ssn","label":"SSN","type":"string","table":"secret"}},
                    "metrics":{"ssn_count":{"name":"ssn_count","label":"SSN count","type":"count","table":"secret"}}},
                "orders":{"name":"orders","label":"Orders","description":"Order facts","sqlTable":"db.orders",
                    "dimensions":{
                        "status":{"name":"status","label":"Status","type":"string","table":"orders","sql":"${TABLE}.status"},
                        "created_at.month":{"name":"created_at.month","label":"Month","type":"date","table":"orders"},
                        "internal_id":{"name":"internal_id","label":"Internal","type":"string","table":"orders","hidden":true}
                    },
                    "metrics":{"count":{"name":"count","label":"Count","type":"count","table":"orders","description":"Order count"}}}
            }
        }`),
    })

    res := call(t, ts, "lightdash_get_explore", map[string]any{"projectUuid": "p-1", "exploreName": "orders"})
    assert.NotContains(t, firstText(t, res), "sql")
    assert.NotContains(t, firstText(t, res), "internal_id")
    assert.NotContains(t, firstText(t, res), "secret_ssn", "fields of a hidden join stay hidden")
    assert.NotContains(t, firstText(t, res), `"secret"`)

    got := decodeText[types.ExploreDetail](t, res)
    require.Len(t, got.Tables, 2)
    assert.Equal(t, "orders", got.Tables[0].Name, "base table first")
    assert.Equal(t, "customers", got.Tables[1].Name)

    dims := got.Tables[0].Dimensions
    require.Len(t, dims, 2)
    assert.Equal(t, "orders_created_at__month", dims[0].FieldID)
    assert.Equal(t, "orders_status", dims[1].FieldID)
    assert.Equal(t, "orders_count", got.Tables[0].Metrics[0].FieldID)
    assert.NotNil(t, got.Tables[1].Metrics)

    assert.Equal(t, []types.ExploreJoin{{Table: "customers", Type: "left"}}, got.Joins)
}

func TestFailuresBecomeErrorResults(t *testing.T) {
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "GET /api/v1/saved/missing":        fail(http.StatusNotFound, `{"status":"error","error":{"statusCode":404,"name":"NotFoundError","message":"Saved chart not found"}}`),
        "GET /api/v1/saved/leaky":          fail(http.StatusInternalServerError, `{"error":{"message":"upstream ApiKey ldpat_secret rejected at https://db.internal/x"}}`),
        "GET /api/v1/saved/garbage":        ok(`{"uuid":`),
        "GET /api/v1/projects/p-1/charts":  fail(http.StatusBadGateway, `<html>bad gateway</html>`),
        "GET /api/v1/projects/p-1/spaces":  ok(`"not a list"`),
        "POST /api/v1/saved/c-1/results":   ok(`{"rows":[],"fields":[1,2]}`),
    })

    tests := []struct {
        name string
        tool string
        args map[string]any
        want string
    }{
        {"not found", "lightdash_get_chart", map[string]any{"chartUuid": "missing"}, "Lightdash API error (404): Saved chart not found"},
        {"secret in upstream message", "lightdash_get_chart", map[string]any{"chartUuid": "leaky"}, "Lightdash API error (500): upstream ApiKey [REDACTED] rejected at [URL REDACTED]"},
        {"html error page", "lightdash_search_charts", map[string]any{"projectUuid": "p-1", "query": "x"}, "Lightdash API error (502): HTTP 502"},
        {"missing argument", "lightdash_get_chart", map[string]any{}, `required argument "chartUuid" not found`},
        {"blank argument", "lightdash_list_spaces", map[string]any{"projectUuid": "  "}, `argument "projectUuid" must not be empty`},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            res := call(t, ts, tt.tool, tt.args)
            assert.True(t, res.IsError)
            assert.Equal(t, tt.want, firstText(t, res))
            assert.NotContains(t, firstText(t, res), "ldpat_secret")
        })
    }

    // decode failures surface as errors without a fixed text
    for _, c := range []struct {
        tool string
        args map[string]any
    }{
        {"lightdash_get_chart", map[string]any{"chartUuid": "garbage"}},
        {"lightdash_list_spaces", map[string]any{"projectUuid": "p-1"}},
        {"lightdash_get_chart_results", map[string]any{"chartUuid": "c-1"}},
    } {
        res := call(t, ts, c.tool, c.args)
        assert.True(t, res.IsError, c.tool)
        assert.NotEmpty(t, firstText(t, res))
    }
}

func TestQueryTimeout(t *testing.T) {
    release := make(chan struct{})
    ts := fakeLightdash(t, map[string]http.HandlerFunc{
        "POST /api/v1/saved/c-1/results": func(w http.ResponseWriter, r *http.Request) {
            select {
            case <-release:
            case <-r.Context().Done():
            }
        },
    }, WithQueryTimeout(50*time.Millisecond))
    defer close(release)

    res := call(t, ts, "lightdash_get_chart_results", map[string]any{"chartUuid": "c-1"})
    assert.True(t, res.IsError)
    assert.Equal(t, apierr.TimeoutMessage, firstText(t, res))
}
