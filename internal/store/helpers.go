package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/BTreeMap/IntakePipe/internal/models"
)

// marshalPayload serializes a record for the JSON payload column.
func marshalPayload(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(b), nil
}

// unmarshalPayload deserializes a JSON payload column into the given record.
func unmarshalPayload(payload string, v interface{}) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// collectEncounters drains a payload-only result set into encounters.
func collectEncounters(rows *sql.Rows) ([]*models.Encounter, error) {
	var out []*models.Encounter
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan encounter row: %w", err)
		}
		var enc models.Encounter
		if err := unmarshalPayload(payload, &enc); err != nil {
			return nil, err
		}
		out = append(out, &enc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate encounter rows: %w", err)
	}
	return out, nil
}
