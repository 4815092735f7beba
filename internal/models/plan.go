package models

// Plan represents a purchasable subscription plan
// Price is stored in minor currency units, the way the gateway quotes it
type Plan struct {
	BaseModel
	PlanID       string `json:"plan_id" gorm:"uniqueIndex;not null;size:50"`
	Name         string `json:"name" gorm:"not null"`
	PriceMinor   int64  `json:"price_minor" gorm:"not null"`
	Currency     string `json:"currency" gorm:"size:8;not null"`
	IntervalDays int    `json:"interval_days" gorm:"not null"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
	Description  string `json:"description"`
}
