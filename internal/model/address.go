package model

import (
	"fmt"
	"time"
)

// Address is a VOE address tracked by the service. The ID is the ordered
// triple "{city_id}-{street_id}-{house_id}" as used by the VOE search form.
type Address struct {
	ID        string `gorm:"primaryKey;size:64"`
	CityID    int64  `gorm:"not null"`
	StreetID  int64  `gorm:"not null"`
	HouseID   int64  `gorm:"not null"`
	Name      string `gorm:"size:256;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddressID builds the string key for a city/street/house triple.
func AddressID(cityID, streetID, houseID int64) string {
	return fmt.Sprintf("%d-%d-%d", cityID, streetID, houseID)
}
