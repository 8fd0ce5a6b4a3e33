package model

// GeoEntity is one node in the district/subdistrict/village tree.
type GeoEntity struct {
	Code       string `gorm:"type:varchar(20);primaryKey" json:"code"`
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Type       string `gorm:"type:varchar(20);not null;index" json:"type"` // district, subdistrict, village
	ParentCode string `gorm:"type:varchar(20);index" json:"parent_code"`   // empty for districts
}
