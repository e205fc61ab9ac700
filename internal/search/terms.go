package search

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadTerms reads tracked search terms from a text file, one per line.
// Blank lines and lines starting with # are ignored. Terms that normalize
// to the same form as an earlier one are dropped and returned in duplicates
// so the caller can warn about them.
func LoadTerms(path string) (terms []string, duplicates []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening search term file: %w", err)
	}
	defer file.Close()

	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key := Normalize(line)
		if key == "" {
			continue
		}
		if seen[key] {
			duplicates = append(duplicates, line)
			continue
		}
		seen[key] = true
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading search term file: %w", err)
	}

	return terms, duplicates, nil
}
