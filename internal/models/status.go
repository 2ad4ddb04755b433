package models

import (
	"dance-ops/internal/enrollment"
	"dance-ops/internal/pricing"
)

// StatusDisplayInfo contains display information for a payment or enrollment status
type StatusDisplayInfo struct {
	DisplayName string `json:"display_name"`
	BgColor     string `json:"bg_color"`
	TextColor   string `json:"text_color"`
	BorderColor string `json:"border_color"`
}

var statusMap = map[string]StatusDisplayInfo{
	string(pricing.StatusUnpaid): {
		DisplayName: "Unpaid",
		BgColor:     "#FFE6E6",
		TextColor:   "#CC0000",
		BorderColor: "#dc3545",
	},
	string(pricing.StatusPartial): {
		DisplayName: "Partially Paid",
		BgColor:     "#FFF9E6",
		TextColor:   "#8B6914",
		BorderColor: "#FFA500",
	},
	string(pricing.StatusPaid): {
		DisplayName: "Paid",
		BgColor:     "#E6FFE6",
		TextColor:   "#006600",
		BorderColor: "#28a745",
	},
	string(enrollment.StatusActive): {
		DisplayName: "Enrolled",
		BgColor:     "#E6F3FF",
		TextColor:   "#0066CC",
		BorderColor: "#4EC6E0",
	},
	string(enrollment.StatusWaitlisted): {
		DisplayName: "Waitlisted",
		BgColor:     "#FFF4E6",
		TextColor:   "#8B6914",
		BorderColor: "#FFA500",
	},
	string(enrollment.StatusDropped): {
		DisplayName: "Dropped",
		BgColor:     "#F5F5F5",
		TextColor:   "#666",
		BorderColor: "#8C8C8C",
	},
}

// GetStatusDisplayInfo returns display information for a given status
func GetStatusDisplayInfo(status string) StatusDisplayInfo {
	if info, ok := statusMap[status]; ok {
		return info
	}

	// Default for unknown status
	return StatusDisplayInfo{
		DisplayName: status,
		BgColor:     "#E6E6E6",
		TextColor:   "#333",
		BorderColor: "#8C8C8C",
	}
}
