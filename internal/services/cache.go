package services

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

const cacheVersion = "v2"

type cachedDataset struct {
	Source       string
	LastModified time.Time
	DateLayouts  []string
	Records      []models.Transaction
}

func cacheFilename(dir, csvPath string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", strings.ReplaceAll(csvPath, string(filepath.Separator), "_"), cacheVersion))
}

func saveToCache(dir, csvPath string, layouts []string, records []models.Transaction) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(cacheFilename(dir, csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(cachedDataset{
		Source:       csvPath,
		LastModified: time.Now(),
		DateLayouts:  layouts,
		Records:      records,
	})
}

// loadFromCache returns the cached records for csvPath. Derived date fields
// depend on the layouts, so a cache written with different layouts is stale.
func loadFromCache(dir, csvPath string, layouts []string) (*cachedDataset, error) {
	file, err := os.Open(cacheFilename(dir, csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data cachedDataset
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, err
	}
	if data.Source != csvPath {
		return nil, fmt.Errorf("cache source mismatch: %s", data.Source)
	}
	if !slices.Equal(data.DateLayouts, layouts) {
		return nil, fmt.Errorf("cache date layouts mismatch: %v", data.DateLayouts)
	}

	return &data, nil
}
