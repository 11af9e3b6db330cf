package model

import "time"

// CustomerMapping maps a contact email to a gateway customer
type CustomerMapping struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider           string    `gorm:"size:30;not null;uniqueIndex:idx_customer_mappings_provider_email,priority:1" json:"provider"`
	CustomerEmail      string    `gorm:"size:255;not null;uniqueIndex:idx_customer_mappings_provider_email,priority:2" json:"customer_email"`
	ProviderCustomerID string    `gorm:"size:100;not null;index" json:"provider_customer_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (CustomerMapping) TableName() string {
	return "customer_mappings"
}
