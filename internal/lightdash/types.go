package lightdash

import (
    "bytes"
    "encoding/json"
    "fmt"
)

// The types below name only the fields the tools project. Everything else in
// the upstream payloads is ignored during decoding.

// Organization is the subset of GET /org.
type Organization struct {
    OrganizationUUID string `json:"organizationUuid"`
    OrganizationName string `json:"organizationName"`
    NeedsProject     bool   `json:"needsProject"`
}

// ProjectSummary is one entry of GET /org/projects.
type ProjectSummary struct {
    ProjectUUID string `json:"projectUuid"`
    Name        string `json:"name"`
    Type        string `json:"type"`
}

// SpaceSummary is one entry of GET /projects/{uuid}/spaces.
type SpaceSummary struct {
    UUID            string  `json:"uuid"`
    Name            string  `json:"name"`
    IsPrivate       bool    `json:"isPrivate"`
    ChartCount      int     `json:"chartCount"`
    DashboardCount  int     `json:"dashboardCount"`
    ParentSpaceUUID *string `json:"parentSpaceUuid"`
}

// ChartSummary is one entry of GET /projects/{uuid}/charts.
type ChartSummary struct {
    UUID      string  `json:"uuid"`
    Name      string  `json:"name"`
    SpaceName string  `json:"spaceName"`
    ChartType *string `json:"chartType"`
    ChartKind *string `json:"chartKind"`
    UpdatedAt string  `json:"updatedAt"`
    Slug      string  `json:"slug"`
}

// SavedChart is the subset of GET /saved/{uuid}. MetricQuery stays loosely
// typed: filters and sorts are passed through as-is.
type SavedChart struct {
    UUID        string  `json:"uuid"`
    Name        string  `json:"name"`
    Description *string `json:"description"`
    TableName   string  `json:"tableName"`
    SpaceName   string  `json:"spaceName"`
    ChartConfig *struct {
        Type string `json:"type"`
    } `json:"chartConfig"`
    MetricQuery map[string]any `json:"metricQuery"`
}

// DashboardSummary is one entry of GET /projects/{uuid}/dashboards.
type DashboardSummary struct {
    UUID        string  `json:"uuid"`
    Name        string  `json:"name"`
    Description *string `json:"description"`
    SpaceUUID   string  `json:"spaceUuid"`
    UpdatedAt   string  `json:"updatedAt"`
}

// ExploreSummary is one entry of GET /projects/{uuid}/explores. Explores that
// failed to compile carry a non-empty Errors list.
type ExploreSummary struct {
    Name        string         `json:"name"`
    Label       string         `json:"label"`
    Description *string        `json:"description"`
    Tags        []string       `json:"tags"`
    Errors      []ExploreError `json:"errors"`
}

// ExploreError describes why an explore could not be compiled.
type ExploreError struct {
    Type    string `json:"type"`
    Message string `json:"message"`
}

// Explore is the subset of GET /projects/{uuid}/explores/{name}. SQL and
// compiled SQL are deliberately absent.
type Explore struct {
    Name         string           `json:"name"`
    Label        string           `json:"label"`
    Tags         []string         `json:"tags"`
    BaseTable    string           `json:"baseTable"`
    JoinedTables []JoinedTable    `json:"joinedTables"`
    Tables       map[string]Table `json:"tables"`
}

// JoinedTable is one join of an explore.
type JoinedTable struct {
    Table  string `json:"table"`
    Type   string `json:"type"`
    Hidden bool   `json:"hidden"`
}

// Table is one table of a compiled explore.
type Table struct {
    Name        string           `json:"name"`
    Label       string           `json:"label"`
    Description string           `json:"description"`
    Dimensions  map[string]Field `json:"dimensions"`
    Metrics     map[string]Field `json:"metrics"`
}

// Field is a dimension or a metric.
type Field struct {
    Name        string `json:"name"`
    Label       string `json:"label"`
    Type        string `json:"type"`
    Table       string `json:"table"`
    Description string `json:"description"`
    Hidden      bool   `json:"hidden"`
}

// QueryResults is the results payload of both runQuery and saved chart
// execution.
type QueryResults struct {
    Rows   []map[string]any `json:"rows"`
    Fields json.RawMessage  `json:"fields"`
}

// Columns returns the keys of the fields object in the order the API sent them.
func (r QueryResults) Columns() ([]string, error) {
    return objectKeys(r.Fields)
}

// objectKeys lists the top-level keys of a JSON object, preserving order.
func objectKeys(raw json.RawMessage) ([]string, error) {
    keys := []string{}
    if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
        return keys, nil
    }

    dec := json.NewDecoder(bytes.NewReader(raw))
    tok, err := dec.Token()
    if err != nil {
        return nil, fmt.Errorf("decode fields: %w", err)
    }
    if d, ok := tok.(json.Delim); !ok || d != '{' {
        return nil, fmt.Errorf("decode fields: expected object, got %v", tok)
    }

    for dec.More() {
        tok, err := dec.Token()
        if err != nil {
            return nil, fmt.Errorf("decode fields: %w", err)
        }
        key, ok := tok.(string)
        if !ok {
            return nil, fmt.Errorf("decode fields: unexpected key %v", tok)
        }
        keys = append(keys, key)

        var skip json.RawMessage
        if err := dec.Decode(&skip); err != nil {
            return nil, fmt.Errorf("decode fields: %w", err)
        }
    }
    return keys, nil
}

// MetricQueryRequest is the body of POST .../runQuery.
type MetricQueryRequest struct {
    ExploreName       string      `json:"exploreName"`
    Dimensions        []string    `json:"dimensions"`
    Metrics           []string    `json:"metrics"`
    Filters           any         `json:"filters"`
    Sorts             []SortField `json:"sorts"`
    Limit             int         `json:"limit"`
    TableCalculations []any       `json:"tableCalculations"`
}

// SortField orders query results by one field.
type SortField struct {
    FieldID    string `json:"fieldId"`
    Descending bool   `json:"descending"`
}

// HealthStatus is the subset of GET /health.
type HealthStatus struct {
    Healthy bool   `json:"healthy"`
    Version string `json:"version"`
}
