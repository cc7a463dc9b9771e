package licenses

import (
	"strings"
)

// Role is the viewer's relationship to a license.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleLicensee Role = "licensee"
)

// License type enum values fixed by the deployed contract.
const (
	TypeStreaming    = 0
	TypeDistribution = 1
	TypeCommercial   = 2
	TypeRemix        = 3
	TypeExclusive    = 4
)

var typeLabels = []string{"Streaming", "Distribution", "Commercial", "Remix", "Exclusive"}

// TypeLabel maps the numeric license type to its display name.
func TypeLabel(licenseType uint8) string {
	if int(licenseType) < len(typeLabels) {
		return typeLabels[licenseType]
	}
	return "Unknown"
}

// ValidType reports whether the numeric type is one the contract understands.
func ValidType(licenseType int) bool {
	return licenseType >= 0 && licenseType < len(typeLabels)
}

// Metadata is the off-chain document pinned alongside a license. Every field
// is optional; a failed fetch leaves the whole document zero-valued.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Description string `json:"description,omitempty"`
	AudioHash   string `json:"audioHash,omitempty"`
	ImageHash   string `json:"imageHash,omitempty"`
	Terms       string `json:"terms,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// IsZero reports whether the document carries no fields at all.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// License is the hydrated view of one issuance event: on-chain fields, the
// live active flag, and best-effort metadata. It is rebuilt on every load and
// never stored by this service.
type License struct {
	ID             string   `json:"id"`
	Creator        string   `json:"creator"`
	Licensee       string   `json:"licensee"`
	LicenseType    uint8    `json:"license_type"`
	TypeLabel      string   `json:"type_label"`
	StartTimestamp uint64   `json:"start_timestamp"`
	EndTimestamp   uint64   `json:"end_timestamp"`
	ContentRef     string   `json:"content_ref"`
	IsActive       bool     `json:"is_active"`
	Metadata       Metadata `json:"metadata"`
	Role           Role     `json:"role"`
	MetadataURL    string   `json:"metadata_url,omitempty"`
	AudioURL       string   `json:"audio_url,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
}

// Filter narrows the aggregated set for presentation.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterCreator  Filter = "creator"
	FilterLicensee Filter = "licensee"
	FilterActive   Filter = "active"
	FilterInactive Filter = "inactive"
)

// ParseFilter normalizes a query value; empty means all.
func ParseFilter(value string) (Filter, bool) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case "", FilterAll:
		return FilterAll, true
	case FilterCreator:
		return FilterCreator, true
	case FilterLicensee:
		return FilterLicensee, true
	case FilterActive:
		return FilterActive, true
	case FilterInactive:
		return FilterInactive, true
	}
	return "", false
}
