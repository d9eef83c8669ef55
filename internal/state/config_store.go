/*

Durable configuration key-value map. Plain JSONB rows keyed by name; the
engines treat this as a simple durable map with no special semantics.

*/

package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SetConfigValue stores value under key, replacing any previous value.
func SetConfigValue(key string, value interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal config value for %q: %w", key, err)
	}
	_, err = DB.Exec(
		`INSERT INTO config_kv (config_key, config_value, updated_at)
		 VALUES ($1, $2, CURRENT_TIMESTAMP)
		 ON CONFLICT (config_key) DO UPDATE SET config_value = $2, updated_at = CURRENT_TIMESTAMP`,
		key, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert config key %q: %w", key, err)
	}
	return nil
}

// GetConfigValue loads the value stored under key into out. Returns
// sql.ErrNoRows when the key is absent.
func GetConfigValue(key string, out interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	var raw []byte
	err := DB.QueryRow(`SELECT config_value FROM config_kv WHERE config_key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to query config key %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal config value for %q: %w", key, err)
	}
	return nil
}
