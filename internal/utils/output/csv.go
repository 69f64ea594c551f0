package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/law-makers/crawlflow/pkg/models"
)

// SaveCSV writes results to a CSV file. The header is taken from the type of
// the first result; results of other types are skipped.
func SaveCSV(results []any, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(results) == 0 {
		return nil
	}

	header, _ := row(results[0])
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		h, values := row(r)
		if len(h) != len(header) || h[0] != header[0] {
			continue
		}
		if err := writer.Write(values); err != nil {
			return err
		}
	}
	return writer.Error()
}

func row(v any) (header, values []string) {
	switch r := v.(type) {
	case models.Link:
		return []string{"Text", "URL"}, []string{r.Text, r.URL}
	case models.Article:
		return []string{"URL", "Title", "Description", "Fields"},
			[]string{r.URL, r.Title, r.Description, joinFields(r.Fields)}
	case models.RawPage:
		return []string{"URL", "Length"}, []string{r.URL, strconv.Itoa(r.Length)}
	case models.APIResult:
		return []string{"URL", "Status", "Data"},
			[]string{r.URL, strconv.Itoa(r.Status), fmt.Sprint(r.Data)}
	default:
		return []string{"Value"}, []string{fmt.Sprint(v)}
	}
}

func joinFields(fields map[string]string) string {
	var s string
	for i, k := range sortedKeys(fields) {
		if i > 0 {
			s += "; "
		}
		s += k + "=" + fields[k]
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
