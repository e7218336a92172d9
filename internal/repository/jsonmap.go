package repository

import (
    "database/sql"
    "encoding/json"
)

// Config maps are stored as JSON in TEXT columns.  These helpers keep the
// decoding defensive: a NULL, empty or malformed column decodes to an
// empty map rather than failing the whole row, and only object-shaped
// JSON is accepted.

func decodeConfig(ns sql.NullString) map[string]any {
    if !ns.Valid || ns.String == "" {
        return map[string]any{}
    }
    var m map[string]any
    if err := json.Unmarshal([]byte(ns.String), &m); err != nil || m == nil {
        return map[string]any{}
    }
    return m
}

func encodeConfig(m map[string]any) (string, error) {
    if m == nil {
        m = map[string]any{}
    }
    b, err := json.Marshal(m)
    if err != nil {
        return "", err
    }
    return string(b), nil
}
