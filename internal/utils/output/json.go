package output

import (
	"encoding/json"
	"os"
)

// SaveJSON writes results as indented JSON to filepath.
func SaveJSON(results any, filepath string) error {
	content, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
