package adapter

import (
	"fmt"
	"strings"
)

// MainTable is the table name of a dataset's visibility rows.
const MainTable = "MAIN"

// subtableSep separates a dataset path from a subtable keyword.
const subtableSep = "::"

// SubtablePath returns the path of a keyword subtable of a dataset.
func SubtablePath(dataset, keyword string) (string, error) {
	if strings.Contains(dataset, subtableSep) {
		return "", fmt.Errorf("%s is already a subtable path", dataset)
	}
	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	if keyword == "" || keyword == MainTable {
		return "", fmt.Errorf("invalid subtable keyword %q", keyword)
	}
	return dataset + subtableSep + keyword, nil
}

// SplitPath splits a table path into its dataset and table name.
func SplitPath(path string) (dataset, table string) {
	if i := strings.LastIndex(path, subtableSep); i >= 0 {
		return path[:i], path[i+len(subtableSep):]
	}
	return path, MainTable
}
