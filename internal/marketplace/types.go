package marketplace

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status values reported in Instance.ActualStatus
const (
	StatusLoading = "loading"
	StatusRunning = "running"
	StatusExited  = "exited"
)

// Offer is one machine returned by `search offers`. Only the fields the
// estimator and the listing need are decoded.
type Offer struct {
	ID int64 `json:"id"`

	// Prices, all in USD
	DPHTotal     float64 `json:"dph_total"`      // per hour, compute
	StorageCost  float64 `json:"storage_cost"`   // per GB per month
	InetUpCost   float64 `json:"inet_up_cost"`   // per GB
	InetDownCost float64 `json:"inet_down_cost"` // per GB

	InetUp            float64 `json:"inet_up"`   // Mbps
	InetDown          float64 `json:"inet_down"` // Mbps
	NumGPUs           int     `json:"num_gpus"`
	GPUName           string  `json:"gpu_name"`
	CPUCores          int     `json:"cpu_cores"`
	CPUCoresEffective float64 `json:"cpu_cores_effective"`
	CPUName           string  `json:"cpu_name"`
	CPURAM            float64 `json:"cpu_ram"` // MB
	Geolocation       string  `json:"geolocation"`
}

// rawOffer mirrors Offer with pointers on the fields the cost estimate
// cannot do without, so absent keys are told apart from zero prices.
type rawOffer struct {
	ID           *int64   `json:"id"`
	DPHTotal     *float64 `json:"dph_total"`
	StorageCost  *float64 `json:"storage_cost"`
	InetUpCost   *float64 `json:"inet_up_cost"`
	InetDownCost *float64 `json:"inet_down_cost"`

	InetUp            float64 `json:"inet_up"`
	InetDown          float64 `json:"inet_down"`
	NumGPUs           int     `json:"num_gpus"`
	GPUName           string  `json:"gpu_name"`
	CPUCores          int     `json:"cpu_cores"`
	CPUCoresEffective float64 `json:"cpu_cores_effective"`
	CPUName           string  `json:"cpu_name"`
	CPURAM            float64 `json:"cpu_ram"`
	Geolocation       string  `json:"geolocation"`
}

func (r *rawOffer) toOffer(index int) (*Offer, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"id", r.ID != nil},
		{"dph_total", r.DPHTotal != nil},
		{"storage_cost", r.StorageCost != nil},
		{"inet_up_cost", r.InetUpCost != nil},
		{"inet_down_cost", r.InetDownCost != nil},
	}
	for _, f := range required {
		if !f.present {
			return nil, &ParseError{
				Op:    "search offers",
				Field: fmt.Sprintf("[%d].%s", index, f.name),
				Err:   ErrMissingField,
			}
		}
	}

	return &Offer{
		ID:                *r.ID,
		DPHTotal:          *r.DPHTotal,
		StorageCost:       *r.StorageCost,
		InetUpCost:        *r.InetUpCost,
		InetDownCost:      *r.InetDownCost,
		InetUp:            r.InetUp,
		InetDown:          r.InetDown,
		NumGPUs:           r.NumGPUs,
		GPUName:           r.GPUName,
		CPUCores:          r.CPUCores,
		CPUCoresEffective: r.CPUCoresEffective,
		CPUName:           r.CPUName,
		CPURAM:            r.CPURAM,
		Geolocation:       r.Geolocation,
	}, nil
}

// DecodeOffers parses the raw output of `search offers`.
func DecodeOffers(data []byte) ([]*Offer, error) {
	var raw []rawOffer
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Op: "search offers", Err: err}
	}

	offers := make([]*Offer, 0, len(raw))
	for i := range raw {
		offer, err := raw[i].toOffer(i)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}

	return offers, nil
}

// LaunchSpec is the workload started on a rented machine
type LaunchSpec struct {
	Image   string
	DiskGB  int
	Env     string
	OnStart string
}

// CreateResult is the response of `create instance`
type CreateResult struct {
	Success     bool  `json:"success"`
	NewContract int64 `json:"new_contract"`
}

// DecodeCreateResult parses the raw output of `create instance`. A response
// with success=false is reported as *CreateError.
func DecodeCreateResult(data []byte) (*CreateResult, error) {
	var raw struct {
		Success     *bool  `json:"success"`
		NewContract *int64 `json:"new_contract"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Op: "create instance", Err: err}
	}
	if raw.Success == nil {
		return nil, &ParseError{Op: "create instance", Field: "success", Err: ErrMissingField}
	}
	if !*raw.Success {
		return nil, &CreateError{Response: string(data)}
	}
	if raw.NewContract == nil {
		return nil, &ParseError{Op: "create instance", Field: "new_contract", Err: ErrMissingField}
	}

	return &CreateResult{Success: true, NewContract: *raw.NewContract}, nil
}

// PortBinding is one host side of a forwarded container port
type PortBinding struct {
	HostIP   string `json:"HostIp"`
	HostPort string `json:"HostPort"`
}

// Instance is the subset of `show instance` used to detect readiness
type Instance struct {
	ID           int64                    `json:"id"`
	Label        string                   `json:"label,omitempty"`
	ActualStatus string                   `json:"actual_status"`
	PublicIPAddr string                   `json:"public_ipaddr"`
	Ports        map[string][]PortBinding `json:"ports"`
}

// HostPort returns the host port mapped to the given container TCP port.
func (i *Instance) HostPort(containerPort int) (string, bool) {
	bindings := i.Ports[strconv.Itoa(containerPort)+"/tcp"]
	for _, b := range bindings {
		if b.HostPort != "" {
			return b.HostPort, true
		}
	}
	return "", false
}

// DecodeInstance parses the raw output of `show instance`. Empty objects and
// null are reported as ErrNoInstanceInfo.
func DecodeInstance(data []byte) (*Instance, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &ParseError{Op: "show instance", Err: err}
	}
	if len(fields) == 0 {
		return nil, ErrNoInstanceInfo
	}

	var inst Instance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, &ParseError{Op: "show instance", Err: err}
	}

	return &inst, nil
}
