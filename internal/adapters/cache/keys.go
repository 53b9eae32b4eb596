package cache

import (
	"errors"
	"strings"

	"collection-route-service/internal/ports"
)

// uniqueKeys trims, drops empties and deduplicates while keeping order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq
}

func validateEntries(entries []ports.CostEntry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.Origin) == "" || strings.TrimSpace(e.Destination) == "" {
			return errors.New("insert distance cache: empty origin or destination key")
		}
	}
	return nil
}
