package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"github.com/khankhulgun/khanstyle/models"
	"gorm.io/gorm"
)

//go:embed default.yaml
var defaultStyle []byte

// Seed writes the default style as map mapID unless that map exists already.
func Seed(db *gorm.DB, mapID string) error {
	var existing models.Map
	err := db.Where("id = ?", mapID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("seed map %s: %w", mapID, err)
	}

	doc, err := Decode(bytes.NewReader(defaultStyle), FormatYAML)
	if err != nil {
		return fmt.Errorf("seed map %s: %w", mapID, err)
	}

	m := models.Map{ID: mapID, Map: mapID}
	for i, src := range doc.Sources {
		m.Sources = append(m.Sources, sourceRow(mapID, src, i+1))
	}
	for i, layer := range doc.Layers {
		m.Layers = append(m.Layers, layerRow(mapID, layer, i+1))
	}
	if err := db.Create(&m).Error; err != nil {
		return fmt.Errorf("seed map %s: %w", mapID, err)
	}
	return nil
}
