package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/khankhulgun/khanstyle/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found in catalog")

const documentTTL = 10 * time.Minute

// Store reads and writes the declarations of maps. Loaded documents are
// cached until a write to the same map.
type Store struct {
	db    *gorm.DB
	cache *ristretto.Cache
}

func NewStore(db *gorm.DB) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog cache: %w", err)
	}
	return &Store{db: db, cache: cache}, nil
}

func (s *Store) Close() {
	s.cache.Close()
}

// Load returns the active layers and the sources of map mapID, each in its
// stored order.
func (s *Store) Load(mapID string) (Document, error) {
	if cached, found := s.cache.Get(mapID); found {
		if doc, ok := cached.(Document); ok {
			return doc, nil
		}
	}

	var m models.Map
	err := s.db.Preload("Sources", func(db *gorm.DB) *gorm.DB {
		return db.Order("source_order ASC")
	}).Preload("Layers", func(db *gorm.DB) *gorm.DB {
		return db.Order("layer_order ASC").Where("is_active = ?", true)
	}).Where("id = ?", mapID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, fmt.Errorf("map %s: %w", mapID, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load map %s: %w", mapID, err)
	}

	doc := Document{
		Sources: make([]models.SourceDescriptor, 0, len(m.Sources)),
		Layers:  make([]models.LayerProps, 0, len(m.Layers)),
	}
	for _, row := range m.Sources {
		doc.Sources = append(doc.Sources, sourceDescriptor(row))
	}
	for _, row := range m.Layers {
		doc.Layers = append(doc.Layers, layerProps(row))
	}

	s.cache.SetWithTTL(mapID, doc, 1, documentTTL)
	s.cache.Wait()
	return doc, nil
}

// SaveLayer inserts or updates a layer. New layers go after every stored
// layer of the map.
func (s *Store) SaveLayer(mapID string, p models.LayerProps) error {
	defer s.cache.Del(mapID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureMap(tx, mapID); err != nil {
			return err
		}
		var row models.MapLayer
		err := tx.Where("map_id = ? AND id = ?", mapID, p.ID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			next, err := nextOrder(tx, &models.MapLayer{}, "layer_order", mapID)
			if err != nil {
				return err
			}
			row = layerRow(mapID, p, next)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("error creating layer %s: %w", p.ID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("find layer %s: %w", p.ID, err)
		}
		updated := layerRow(mapID, p, row.LayerOrder)
		updated.CreatedAt = row.CreatedAt
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("error saving layer %s: %w", p.ID, err)
		}
		return nil
	})
}

func (s *Store) DeleteLayer(mapID, id string) error {
	defer s.cache.Del(mapID)
	res := s.db.Where("map_id = ? AND id = ?", mapID, id).Delete(&models.MapLayer{})
	if res.Error != nil {
		return fmt.Errorf("delete layer %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("layer %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) SaveSource(mapID string, src models.SourceDescriptor) error {
	defer s.cache.Del(mapID)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureMap(tx, mapID); err != nil {
			return err
		}
		var row models.MapSource
		err := tx.Where("map_id = ? AND id = ?", mapID, src.ID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			next, err := nextOrder(tx, &models.MapSource{}, "source_order", mapID)
			if err != nil {
				return err
			}
			row = sourceRow(mapID, src, next)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("error creating source %s: %w", src.ID, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("find source %s: %w", src.ID, err)
		}
		updated := sourceRow(mapID, src, row.SourceOrder)
		updated.CreatedAt = row.CreatedAt
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("error saving source %s: %w", src.ID, err)
		}
		return nil
	})
}

func (s *Store) DeleteSource(mapID, id string) error {
	defer s.cache.Del(mapID)
	res := s.db.Where("map_id = ? AND id = ?", mapID, id).Delete(&models.MapSource{})
	if res.Error != nil {
		return fmt.Errorf("delete source %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	return nil
}

func ensureMap(tx *gorm.DB, mapID string) error {
	m := models.Map{ID: mapID, Map: mapID}
	if err := tx.Where("id = ?", mapID).FirstOrCreate(&m).Error; err != nil {
		return fmt.Errorf("map %s: %w", mapID, err)
	}
	return nil
}

func nextOrder(tx *gorm.DB, model any, column, mapID string) (int, error) {
	var max int
	err := tx.Model(model).Where("map_id = ?", mapID).
		Select("COALESCE(MAX(" + column + "), 0)").Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", column, err)
	}
	return max + 1, nil
}

func layerRow(mapID string, p models.LayerProps, order int) models.MapLayer {
	return models.MapLayer{
		ID:           p.ID,
		MapID:        mapID,
		LayerType:    p.Type,
		SourceID:     optional(p.Source),
		SourceLayer:  optional(p.SourceLayer),
		Filter:       p.Filter,
		MinZoom:      p.MinZoom,
		MaxZoom:      p.MaxZoom,
		Paint:        p.Paint,
		Layout:       p.Layout,
		AboveLayerID: optional(p.AboveLayerID),
		BelowLayerID: optional(p.BelowLayerID),
		LayerIndex:   p.LayerIndex,
		LayerOrder:   order,
		IsActive:     true,
	}
}

func layerProps(row models.MapLayer) models.LayerProps {
	return models.LayerProps{
		ID:           row.ID,
		Type:         row.LayerType,
		Source:       value(row.SourceID),
		SourceLayer:  value(row.SourceLayer),
		Filter:       row.Filter,
		MinZoom:      row.MinZoom,
		MaxZoom:      row.MaxZoom,
		Paint:        row.Paint,
		Layout:       row.Layout,
		AboveLayerID: value(row.AboveLayerID),
		BelowLayerID: value(row.BelowLayerID),
		LayerIndex:   row.LayerIndex,
	}
}

func sourceRow(mapID string, src models.SourceDescriptor, order int) models.MapSource {
	return models.MapSource{
		ID:          src.ID,
		MapID:       mapID,
		SourceType:  src.Type,
		URL:         optional(src.URL),
		Tiles:       src.Tiles,
		Data:        src.Data,
		SourceOrder: order,
	}
}

func sourceDescriptor(row models.MapSource) models.SourceDescriptor {
	return models.SourceDescriptor{
		ID:    row.ID,
		Type:  row.SourceType,
		URL:   value(row.URL),
		Tiles: row.Tiles,
		Data:  row.Data,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
