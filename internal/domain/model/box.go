package model

import "time"

// Unit is one named sub-target within a batch, usually one physical location
// of the remote operator. Units come from configuration and are processed in
// configured order.
type Unit struct {
	ID          string `yaml:"id" json:"id"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Active      bool   `yaml:"active" json:"active"`
}

// BoxRecord is one extracted storage box row as shown by the remote UI.
// String fields keep the site's formatting; numeric areas and volumes are
// normalized by the sink.
type BoxRecord struct {
	BoxNumber      string    `json:"box_number"`
	Status         string    `json:"status"`
	LocationFull   string    `json:"location_full"`
	LocationAccess string    `json:"location_access"`
	TypeName       string    `json:"type_name"`
	TypeFull       string    `json:"type_full"`
	Dimensions     string    `json:"dimensions"`
	AreaM2         string    `json:"area_m2"`
	VolumeM3       string    `json:"volume_m3"`
	PriceMonthly   string    `json:"price_monthly"`
	PricePerM3     string    `json:"price_per_m3"`
	PriceDaily     string    `json:"price_daily"`
	AccessControl  string    `json:"access_control"`
	Localidade     string    `json:"localidade"`
	ExtractedAt    time.Time `json:"extracted_at"`
}
