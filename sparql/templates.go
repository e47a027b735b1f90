package sparql

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadQueryDirectory loads all .rq and .sparql files from a directory. A
// table can be served by several templates; Extract selects them by filename
// prefix and unions the results, so templates are kept in name order.
func (c *Client) LoadQueryDirectory(dirPath string) error {
	files, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read query directory %s: %w", dirPath, err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !isQueryFile(file.Name()) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read query file %s: %w", file.Name(), err)
		}

		c.templates = append(c.templates, queryTemplate{
			name:  file.Name(),
			query: string(data),
		})
		loaded++
	}

	sort.Slice(c.templates, func(i, j int) bool {
		return c.templates[i].name < c.templates[j].name
	})

	c.log.Info().
		Str("directory", dirPath).
		Int("loaded", loaded).
		Msg("Loaded query templates")

	if loaded == 0 {
		return fmt.Errorf("no query templates found in %s", dirPath)
	}
	return nil
}

func isQueryFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".rq" || ext == ".sparql"
}
