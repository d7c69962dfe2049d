package regions

import (
	"fmt"
	"math"
	"strings"
)

// ReportOptions controls the text layout of a feature report
type ReportOptions struct {
	// Subject names a region in headings, for example "Nodule"
	Subject string

	AreaUnit   string
	LengthUnit string
}

// DefaultReportOptions matches the lung nodule report layout
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		Subject:    "Nodule",
		AreaUnit:   "mm²",
		LengthUnit: "mm",
	}
}

// Report renders one section per region with every feature at fixed
// three-decimal precision. Undefined features print as "undefined".
func Report(regions []Region, opts ReportOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Features:\n", opts.Subject)
	if len(regions) == 0 {
		fmt.Fprintf(&b, "\nNo regions found.\n")
		return b.String()
	}

	for _, r := range regions {
		fmt.Fprintf(&b, "\n%s %d Features:\n", opts.Subject, r.Label)
		fmt.Fprintf(&b, "Area: %s\n", withUnit(r.Area, opts.AreaUnit))
		fmt.Fprintf(&b, "Perimeter: %s\n", withUnit(r.Perimeter, opts.LengthUnit))
		fmt.Fprintf(&b, "Aspect Ratio: %s\n", FormatValue(r.AspectRatio))
		fmt.Fprintf(&b, "Eccentricity: %s\n", FormatValue(eccentricity(r)))
		fmt.Fprintf(&b, "Solidity: %s\n", FormatValue(r.Solidity))
	}
	return b.String()
}

func eccentricity(r Region) float64 {
	if !r.EllipseDefined {
		return math.NaN()
	}
	return r.Eccentricity
}

// FormatValue prints v with three decimals, or "undefined" for NaN and
// infinities
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "undefined"
	}
	return fmt.Sprintf("%.3f", v)
}

func withUnit(v float64, unit string) string {
	s := FormatValue(v)
	if unit == "" || s == "undefined" {
		return s
	}
	return s + " " + unit
}
