package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"vastdeploy/internal/estimate"
	"vastdeploy/internal/ranking"
)

const separator = "--------------------------------"

// Options prints the human readable listing of the ranked options
func Options(w io.Writer, options []ranking.Option, a estimate.Assumptions) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\nTop %d most affordable options including storage and bandwidth costs:\n", len(options))
	b.WriteString("================================\n")

	for i, opt := range options {
		o := opt.Offer
		c := opt.Cost

		fmt.Fprintf(&b, "OPTION #%d\n", i)
		fmt.Fprintf(&b, "GPU: %dx %s\n", o.NumGPUs, o.GPUName)
		fmt.Fprintf(&b, "CPU: %d/%d cores - %s\n", int(o.CPUCoresEffective), o.CPUCores, orUnknown(o.CPUName))
		fmt.Fprintf(&b, "RAM: %d GB\n", int(o.CPURAM/1000))
		fmt.Fprintf(&b, "Bandwidth: %.1f Mbps down, %.1f Mbps up\n", o.InetDown, o.InetUp)
		fmt.Fprintf(&b, "Location: %s\n", orUnknown(o.Geolocation))
		b.WriteString("\n")

		b.WriteString("Costs:\n")
		fmt.Fprintf(&b, "GPU: $%.3f/hour\n", c.BaseHourly)
		fmt.Fprintf(&b, "Storage (%gGB): $%.3f/hour\n", a.StorageGB, c.StorageHourly)
		fmt.Fprintf(&b, "Total: $%.3f/hour\n", c.TotalHourly)
		fmt.Fprintf(&b, "Bandwidth (%gGB down / %gGB up): $%.3f\n", a.DownloadGB, a.UploadGB, c.BandwidthFixed)
		fmt.Fprintf(&b, "Total (%g hours): $%.3f\n", a.WindowHours, c.WindowTotal)
		b.WriteString(separator + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes the ranked options as an indented JSON array
func JSON(w io.Writer, options []ranking.Option) error {
	if options == nil {
		options = []ranking.Option{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(options)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
