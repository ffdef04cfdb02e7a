// Package estimate turns an offer's unit prices into the cost of a short
// rental under fixed usage assumptions.
package estimate

import (
	"vastdeploy/internal/config"
	"vastdeploy/internal/marketplace"
)

// Assumptions describe the usage the estimate is based on
type Assumptions struct {
	StorageGB   float64 // disk kept for a whole month
	MonthHours  float64 // hours in the billing month
	DownloadGB  float64 // transferred once, model download
	UploadGB    float64 // transferred once, responses
	WindowHours float64 // rental length the total is quoted for
}

// Defaults matches 30 GB storage over a 720 hour month, 30 GB down, 10 GB up
// and a four hour session.
func Defaults() Assumptions {
	return Assumptions{
		StorageGB:   30,
		MonthHours:  720,
		DownloadGB:  30,
		UploadGB:    10,
		WindowHours: 4,
	}
}

// FromConfig builds Assumptions from the estimate section of the config
func FromConfig(cfg config.EstimateConfig) Assumptions {
	return Assumptions{
		StorageGB:   cfg.StorageGB,
		MonthHours:  cfg.MonthHours,
		DownloadGB:  cfg.DownloadGB,
		UploadGB:    cfg.UploadGB,
		WindowHours: cfg.WindowHours,
	}
}

// Breakdown is the derived cost of one offer, in USD
type Breakdown struct {
	BaseHourly     float64 `json:"base_hourly"`
	StorageHourly  float64 `json:"storage_hourly"`
	BandwidthFixed float64 `json:"bandwidth_fixed"`
	TotalHourly    float64 `json:"total_hourly"`
	WindowTotal    float64 `json:"total_window"`
}

// Estimate computes the breakdown for o. The offer is not modified.
func (a Assumptions) Estimate(o *marketplace.Offer) Breakdown {
	storageHourly := o.StorageCost * a.StorageGB / a.MonthHours
	bandwidth := o.InetDownCost*a.DownloadGB + o.InetUpCost*a.UploadGB
	totalHourly := o.DPHTotal + storageHourly

	return Breakdown{
		BaseHourly:     o.DPHTotal,
		StorageHourly:  storageHourly,
		BandwidthFixed: bandwidth,
		TotalHourly:    totalHourly,
		WindowTotal:    totalHourly*a.WindowHours + bandwidth,
	}
}
