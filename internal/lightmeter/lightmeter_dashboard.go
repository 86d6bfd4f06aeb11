package lightmeter

import (
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/ztkent/lightmeter/internal/tools"
)

// Conditions summarises the readings recorded in a date range.
type Conditions struct {
	DateRange             string  `json:"dateRange"`
	Readings              int     `json:"readings"`
	RecordedHoursInRange  float64 `json:"recordedHoursInRange"`
	FullSunlightInRange   float64 `json:"fullSunlightInRange"`
	LightConditionInRange string  `json:"lightConditionInRange"`
	AverageLuxInRange     float64 `json:"averageLuxInRange"`
}

type History struct {
	Readings []Reading `json:"readings"`
	Summary  Conditions `json:"summary"`
}

// Reference light levels drawn on the chart
var lightLevels = []struct {
	lux   int
	title string
	color string
}{
	{500, "Shade", "DarkGrey"},
	{1000, "Partial Shade", "WhiteSmoke"},
	{10000, "Partial Sun", "SkyBlue"},
	{25000, "Full Sun", "Yellow"},
}

// Serve the sqlite db for download
func (m *Meter) ServeResultsDB() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.DBPath == "" || strings.Contains(m.DBPath, ":memory:") {
			ServeResponse(w, r, "There is no database file to export", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(m.DBPath)))
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, m.DBPath)
	}
}

// Serve the homepage
func (m *Meter) ServeDashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fileContent, err := templateFiles.ReadFile("html/dashboard.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write(fileContent)
	}
}

// Status of the sensor
func (m *Meter) ServeSensorStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmpl, err := parseTemplateFile("html/status.gohtml")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// A sensor that fails to answer is reported as disconnected
		status, err := m.CurrentStatus()
		if err != nil {
			m.logger().WithError(err).Warn("Sensor status check failed")
		}
		err = tmpl.Execute(w, status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// Readings and a summary for a date range
func (m *Meter) ServeHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startDate, endDate, err := tools.ParseStartAndEndDate(r, m.Location)
		if err != nil {
			m.serveError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		readings, err := m.readingsInRange(startDate, endDate)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		conditions, err := m.getHistoricalConditions(startDate, endDate)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		conditions.Readings = len(readings)
		writeJSON(w, http.StatusOK, History{Readings: readings, Summary: conditions})
	}
}

// Serve the results graph
func (m *Meter) ServeResultsGraph() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get the date range for the graph from the request
		startDate, endDate, err := tools.ParseStartAndEndDate(r, m.Location)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		readings, err := m.readingsInRange(startDate, endDate)
		if err != nil {
			m.logger().WithError(err).Error("Failed to load readings")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Prepare the data for the chart
		var luxValues []opts.LineData
		var timeValues []string
		var maxLux int
		for _, rd := range readings {
			if rd.Saturated {
				continue
			}
			if rd.Lux > float64(maxLux) {
				// Round up to the nearest 5000
				maxLux = int(math.Ceil(rd.Lux/5000) * 5000)
			}
			luxValues = append(luxValues, opts.LineData{Value: rd.Lux})
			timeValues = append(timeValues, rd.CreatedAt.In(m.location()).Format("2006-01-02 15:04:05"))
		}

		line := charts.NewLine()
		for _, level := range lightLevels {
			data := make([]opts.LineData, len(timeValues))
			for i := range data {
				data[i] = opts.LineData{Value: level.lux}
			}
			line.AddSeries(level.title, data,
				charts.WithLineChartOpts(opts.LineChart{
					Color: level.color,
				}),
			)
		}

		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme:     types.ThemeChalk,
				PageTitle: SERVICE_NAME,
			}),
			charts.WithXAxisOpts(opts.XAxis{
				Name: "Time",
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name: "Lux",
				Min:  "0",
				Max:  fmt.Sprintf("%d", maxLux),
			}),
			charts.WithTooltipOpts(opts.Tooltip{
				Show:      true,
				Trigger:   "axis",
				TriggerOn: "mousemove",
				Formatter: "{a4}: {c4}<br> Time: {b0}",
			}),
			charts.WithToolboxOpts(opts.Toolbox{
				Show: true,
				Feature: &opts.ToolBoxFeature{
					SaveAsImage: &opts.ToolBoxFeatureSaveAsImage{
						Show:  true,
						Title: "Save as Image",
						Name:  "lightmeter",
					},
				},
			}),
		)
		line.SetXAxis(timeValues).AddSeries("Lux", luxValues)

		page := components.NewPage()
		page.AddCharts(line)

		w.Header().Set("Content-Type", "text/html")
		page.Render(w)
	}
}

func (m *Meter) readingsInRange(startDate, endDate string) ([]Reading, error) {
	readings := []Reading{}
	if m.ResultsDB == nil {
		return readings, nil
	}
	rows, err := m.ResultsDB.Query(`
	SELECT reading_id, gain, integration, ms, ch0, ch1, lux, lux_int, saturated, visible, infrared, created_at
	FROM readings
	WHERE created_at BETWEEN ? AND ?
	ORDER BY created_at, id`, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rd Reading
		if err := rows.Scan(
			&rd.ReadingID,
			&rd.Gain,
			&rd.Integration,
			&rd.Ms,
			&rd.Channel0,
			&rd.Channel1,
			&rd.Lux,
			&rd.LuxInt,
			&rd.Saturated,
			&rd.Visible,
			&rd.Infrared,
			&rd.CreatedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}

// Summarise the unsaturated readings in a date range
func (m *Meter) getHistoricalConditions(startDate string, endDate string) (Conditions, error) {
	conditions := Conditions{DateRange: fmt.Sprintf("%s - %s UTC", startDate, endDate)}
	if m.ResultsDB == nil {
		conditions.LightConditionInRange = "No Data in Range"
		return conditions, nil
	}

	row := m.ResultsDB.QueryRow(`
    SELECT
        COUNT(*),
        COALESCE(AVG(lux), 0),
        COALESCE(MIN(created_at), '0001-01-01 00:00:00'),
        COALESCE(MAX(created_at), '0001-01-01 00:00:00')
    FROM readings
    WHERE saturated = 0 AND created_at BETWEEN ? AND ?`, startDate, endDate)
	var count int
	var oldest, mostRecent sql.NullString
	err := row.Scan(&count, &conditions.AverageLuxInRange, &oldest, &mostRecent)
	if err != nil {
		return conditions, err
	}
	if count == 0 {
		conditions.LightConditionInRange = "No Data in Range"
		return conditions, nil
	}

	// Minutes where the average lux was above 10k
	var fullSunlightMinutes int
	err = m.ResultsDB.QueryRow(`
    SELECT COUNT(*)
    FROM (
        SELECT AVG(lux) as avg_lux
        FROM readings
        WHERE saturated = 0 AND created_at BETWEEN ? AND ?
        GROUP BY strftime('%Y-%m-%d %H:%M', created_at)
    )
    WHERE avg_lux > 10000`, startDate, endDate).Scan(&fullSunlightMinutes)
	if err != nil {
		return conditions, err
	}
	conditions.FullSunlightInRange = float64(fullSunlightMinutes) / 60

	first, last, err := tools.StartAndEndDateToTime(oldest.String, mostRecent.String)
	if err != nil {
		return conditions, err
	}
	conditions.RecordedHoursInRange = last.Sub(first).Hours()
	conditions.LightConditionInRange = lightCondition(conditions)
	return conditions, nil
}

// lightCondition buckets a range by the share of recorded time spent in full
// sun. A range too short to measure falls back to its average lux.
func lightCondition(c Conditions) string {
	if c.RecordedHoursInRange <= 0 {
		switch {
		case c.AverageLuxInRange >= 25000:
			return "Full Sun"
		case c.AverageLuxInRange >= 10000:
			return "Partial Sun"
		case c.AverageLuxInRange >= 1000:
			return "Partial Shade"
		default:
			return "Shade"
		}
	}
	share := c.FullSunlightInRange / c.RecordedHoursInRange
	switch {
	case share > 0.5:
		return "Full Sun"
	case share > 0.25:
		return "Partial Sun"
	case share > 0.1:
		return "Partial Shade"
	default:
		return "Shade"
	}
}

func (m *Meter) location() *time.Location {
	if m.Location == nil {
		return time.UTC
	}
	return m.Location
}
