// Package templates provides the HTML pages of the query server and the
// formatting helpers they use.
package templates

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/darshan-rambhia/tempdb/internal/model"
)

// Sparkline box in pixels.
const (
	sparkWidth  = 240
	sparkHeight = 40
)

// DeploymentURL is the HTML page path for a deployment.
func DeploymentURL(name string) templ.SafeURL {
	return templ.SafeURL("/deployments/" + url.PathEscape(name))
}

// ReadingsCSVURL is the CSV export path for a deployment's readings.
func ReadingsCSVURL(name string) templ.SafeURL {
	return templ.SafeURL("/api/deployments/" + url.PathEscape(name) + "/readings.csv")
}

// FormatTime formats UTC epoch seconds, or "--" for nil.
func FormatTime(unixTS *int64) string {
	if unixTS == nil {
		return "--"
	}
	return time.Unix(*unixTS, 0).UTC().Format("2006-01-02 15:04 UTC")
}

// FormatDuration formats a duration into human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours()/24), int(d.Hours())%24)
}

// FormatSpan formats the time between the first and last reading.
func FormatSpan(first, last *int64) string {
	if first == nil || last == nil {
		return "--"
	}
	return FormatDuration(time.Duration(*last-*first) * time.Second)
}

// FormatAge formats a unix timestamp as time elapsed since now.
func FormatAge(unixTS int64, now time.Time) string {
	age := now.Sub(time.Unix(unixTS, 0))
	if age < time.Hour {
		return fmt.Sprintf("%dm", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return fmt.Sprintf("%dh", int(age.Hours()))
	}
	return fmt.Sprintf("%dd", int(age.Hours()/24))
}

// FormatTemp formats a Celsius value with one decimal.
func FormatTemp(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}

// FormatCount formats n with thousands separators.
func FormatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Labelled returns the label, or the registration number when unlabelled.
func Labelled(label, registration string) string {
	if label == "" {
		return registration
	}
	return label
}

// TempStats holds the range of one sensor's readings.
type TempStats struct {
	Min, Max, Mean float64
	Count          int
}

// SeriesBySensor groups reading values by sensor registration, keeping the
// query order within each sensor.
func SeriesBySensor(rows []model.ReadingRow) map[string][]float64 {
	out := make(map[string][]float64)
	for _, r := range rows {
		out[r.SensorRegistration] = append(out[r.SensorRegistration], r.ValueC)
	}
	return out
}

// Stats computes the range of values. It returns the zero value for an
// empty slice.
func Stats(values []float64) TempStats {
	if len(values) == 0 {
		return TempStats{}
	}
	s := TempStats{Min: math.Inf(1), Max: math.Inf(-1), Count: len(values)}
	var sum float64
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
	}
	s.Mean = sum / float64(len(values))
	return s
}

// Downsample reduces values to at most n points by averaging equal-width
// buckets.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		lo := i * len(values) / n
		hi := (i + 1) * len(values) / n
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

// SparklinePolyline returns SVG polyline points for values scaled into a
// width x height box.
func SparklinePolyline(values []float64, width, height float64) string {
	if len(values) == 0 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1 // flat line
	}

	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		x := width / 2
		if len(values) > 1 {
			x = float64(i) / float64(len(values)-1) * width
		}
		y := height - (v-minVal)/valRange*height // SVG y grows downward
		fmt.Fprintf(&b, "%.1f,%.1f", x, y)
	}
	return b.String()
}

// sparkline returns polyline points for values sized to the sparkline box.
func sparkline(values []float64) string {
	return SparklinePolyline(Downsample(values, sparkWidth), sparkWidth, sparkHeight)
}
