// Package shape holds the stateless transformations tools apply to upstream
// payloads before they reach the MCP client.
package shape

import (
    "fmt"
    "strings"
)

// MaxRows caps how many result rows are ever shown to the client.
const MaxRows = 500

// Pick returns a new object holding only the named fields of obj. Fields
// missing from obj are left out rather than set to nil.
func Pick(obj map[string]any, fields ...string) map[string]any {
    out := make(map[string]any, len(fields))
    for _, f := range fields {
        if v, ok := obj[f]; ok {
            out[f] = v
        }
    }
    return out
}

// FlattenRow collapses Lightdash's {value: {raw, formatted}} cell wrapper to
// the raw scalar. Cells without the wrapper pass through untouched.
func FlattenRow(row map[string]any) map[string]any {
    flat := make(map[string]any, len(row))
    for col, cell := range row {
        flat[col] = flattenCell(cell)
    }
    return flat
}

func flattenCell(cell any) any {
    wrapper, ok := cell.(map[string]any)
    if !ok {
        return cell
    }
    value, ok := wrapper["value"]
    if !ok || value == nil {
        return cell
    }
    if inner, ok := value.(map[string]any); ok {
        if raw, ok := inner["raw"]; ok && raw != nil {
            return raw
        }
    }
    return value
}

// FlattenRows applies FlattenRow to every row.
func FlattenRows(rows []map[string]any) []map[string]any {
    out := make([]map[string]any, len(rows))
    for i, r := range rows {
        out[i] = FlattenRow(r)
    }
    return out
}

// Page is a capped view over a longer sequence.
type Page[T any] struct {
    Items     []T
    Total     int
    Truncated bool
    Message   string
}

// Truncate keeps the first min(len(items), limit) items. Truncated and Message
// are only set when items had to be dropped.
func Truncate[T any](items []T, limit int) Page[T] {
    p := Page[T]{Items: items, Total: len(items)}
    if limit >= 0 && len(items) > limit {
        p.Items = items[:limit]
        p.Truncated = true
        p.Message = fmt.Sprintf("Showing %d of %d rows", limit, len(items))
    }
    return p
}

// FilterByName keeps items whose name contains query, ignoring case. An empty
// query keeps everything.
func FilterByName[T any](items []T, query string, name func(T) string) []T {
    q := strings.ToLower(query)
    out := make([]T, 0, len(items))
    for _, it := range items {
        if strings.Contains(strings.ToLower(name(it)), q) {
            out = append(out, it)
        }
    }
    return out
}
