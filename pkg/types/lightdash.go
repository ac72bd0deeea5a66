package types

// Org is what lightdash_ping reports about the authenticated organization.
type Org struct {
    OrganizationName string `json:"organizationName"`
    OrganizationUUID string `json:"organizationUuid"`
    NeedsProject     bool   `json:"needsProject"`
}

// Project represents one project of the organization
type Project struct {
    UUID string `json:"uuid"`
    Name string `json:"name"`
    Type string `json:"type"`
}

// Space represents one space of a project
type Space struct {
    UUID            string  `json:"uuid"`
    Name            string  `json:"name"`
    IsPrivate       bool    `json:"isPrivate"`
    ChartCount      int     `json:"chartCount"`
    DashboardCount  int     `json:"dashboardCount"`
    ParentSpaceUUID *string `json:"parentSpaceUuid"`
}

// ChartSummary represents one saved chart in a search result
type ChartSummary struct {
    UUID      string  `json:"uuid"`
    Name      string  `json:"name"`
    SpaceName string  `json:"spaceName"`
    ChartType *string `json:"chartType"`
    ChartKind *string `json:"chartKind"`
    UpdatedAt string  `json:"updatedAt"`
    Slug      string  `json:"slug"`
}

// ChartDetail is the configuration of a saved chart
type ChartDetail struct {
    UUID        string         `json:"uuid"`
    Name        string         `json:"name"`
    Description *string        `json:"description"`
    TableName   string         `json:"tableName"`
    SpaceName   string         `json:"spaceName"`
    ChartType   *string        `json:"chartType"`
    MetricQuery map[string]any `json:"metricQuery"`
}

// Dashboard represents one dashboard of a project
type Dashboard struct {
    UUID        string  `json:"uuid"`
    Name        string  `json:"name"`
    Description *string `json:"description"`
    SpaceUUID   string  `json:"spaceUuid"`
    UpdatedAt   string  `json:"updatedAt"`
}

// Explore status values
const (
    ExploreOK    = "ok"
    ExploreError = "error"
)

// ExploreSummary represents one explore (queryable model) of a project
type ExploreSummary struct {
    Name        string   `json:"name"`
    Label       string   `json:"label"`
    Description *string  `json:"description"`
    Tags        []string `json:"tags"`
    Status      string   `json:"status"`
    Errors      []string `json:"errors,omitempty"`
}

// ExploreDetail describes the fields available for querying an explore
type ExploreDetail struct {
    Name      string         `json:"name"`
    Label     string         `json:"label"`
    BaseTable string         `json:"baseTable"`
    Tables    []ExploreTable `json:"tables"`
    Joins     []ExploreJoin  `json:"joins"`
}

// ExploreTable lists the visible fields of one table
type ExploreTable struct {
    Name        string         `json:"name"`
    Label       string         `json:"label"`
    Description string         `json:"description,omitempty"`
    Dimensions  []ExploreField `json:"dimensions"`
    Metrics     []ExploreField `json:"metrics"`
}

// ExploreField is a dimension or metric. FieldID is the identifier
// lightdash_run_raw_query expects.
type ExploreField struct {
    FieldID     string `json:"fieldId"`
    Name        string `json:"name"`
    Label       string `json:"label"`
    Type        string `json:"type"`
    Description string `json:"description,omitempty"`
}

// ExploreJoin is one joined table
type ExploreJoin struct {
    Table string `json:"table"`
    Type  string `json:"type,omitempty"`
}

// QueryResults is the shaped output of chart and raw query execution
type QueryResults struct {
    Columns   []string         `json:"columns"`
    Rows      []map[string]any `json:"rows"`
    RowCount  int              `json:"rowCount"`
    Truncated bool             `json:"truncated,omitempty"`
    Message   string           `json:"message,omitempty"`
}
