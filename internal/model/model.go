// Package model holds the GORM table definitions.
package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels lists every table created by AutoMigrate.
var DatabaseModels = []interface{}{
	&PositionSample{},
	&VesselAttribute{},
}

// PositionSample is one row of the movement dataset.
// Seq keeps the load order so equal timestamps sort stably.
type PositionSample struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Seq       uint      `json:"seq" gorm:"index"`
	VesselID  string    `json:"vesselId" gorm:"size:32;index:idx_vessel_time,priority:1"`
	Time      time.Time `json:"time" gorm:"index:idx_vessel_time,priority:2"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

func (*PositionSample) TableName() string {
	return "position_samples"
}

// VesselAttribute is one row of the attribute dataset.
type VesselAttribute struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Seq       uint           `json:"seq" gorm:"index"`
	VesselID  string         `json:"vesselId" gorm:"size:32;index"`
	ShipType  string         `json:"shipType" gorm:"size:127;index"`
	NavStatus string         `json:"navStatus" gorm:"size:127;index"`
	Extra     datatypes.JSON `json:"extra"`
}

func (*VesselAttribute) TableName() string {
	return "vessel_attributes"
}
