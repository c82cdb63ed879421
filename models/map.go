package models

import (
	"time"

	"gorm.io/gorm"
)

type Map struct {
	ID          string         `gorm:"column:id;primaryKey" json:"id"`
	Map         string         `gorm:"column:map" json:"map"`
	Description *string        `gorm:"column:description" json:"description"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"-"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"-"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at" json:"-"`
	Sources     []MapSource    `gorm:"foreignKey:MapID" json:"sources"`
	Layers      []MapLayer     `gorm:"foreignKey:MapID" json:"layers"`
}

func (m *Map) TableName() string {
	return "style_map"
}

type MapSource struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	MapID       string    `gorm:"column:map_id;primaryKey" json:"map_id"`
	SourceType  string    `gorm:"column:source_type" json:"source_type"`
	URL         *string   `gorm:"column:url" json:"url"`
	Tiles       []string  `gorm:"column:tiles;type:text;serializer:json" json:"tiles"`
	Data        any       `gorm:"column:data;type:text;serializer:json" json:"data"`
	SourceOrder int       `gorm:"column:source_order" json:"source_order"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"-"`
}

func (s *MapSource) TableName() string {
	return "style_map_sources"
}

type MapLayer struct {
	ID           string         `gorm:"column:id;primaryKey" json:"id"`
	MapID        string         `gorm:"column:map_id;primaryKey" json:"map_id"`
	LayerType    string         `gorm:"column:layer_type" json:"layer_type"`
	SourceID     *string        `gorm:"column:source_id" json:"source_id"`
	SourceLayer  *string        `gorm:"column:source_layer" json:"source_layer"`
	Filter       []any          `gorm:"column:filter;type:text;serializer:json" json:"filter"`
	MinZoom      *float64       `gorm:"column:min_zoom" json:"min_zoom"`
	MaxZoom      *float64       `gorm:"column:max_zoom" json:"max_zoom"`
	Paint        map[string]any `gorm:"column:paint;type:text;serializer:json" json:"paint"`
	Layout       map[string]any `gorm:"column:layout;type:text;serializer:json" json:"layout"`
	AboveLayerID *string        `gorm:"column:above_layer_id" json:"above_layer_id"`
	BelowLayerID *string        `gorm:"column:below_layer_id" json:"below_layer_id"`
	LayerIndex   *int           `gorm:"column:layer_index" json:"layer_index"`
	LayerOrder   int            `gorm:"column:layer_order" json:"layer_order"`
	IsActive     bool           `gorm:"column:is_active" json:"is_active"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"-"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"-"`
}

func (m *MapLayer) TableName() string {
	return "style_map_layers"
}
