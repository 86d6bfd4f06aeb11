package lightmeter

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ztkent/lightmeter/tsl2561"
	"go.uber.org/multierr"
)

//go:embed html/*
var templateFiles embed.FS

var (
	ErrNoSensor   = errors.New("the sensor is not connected")
	ErrBadRequest = errors.New("bad request")
)

const SERVICE_NAME = "Lightmeter"

// Meter serves on-demand readings from a single TSL2561.
// All sensor access goes through mu; the driver itself is not safe for
// concurrent use.
type Meter struct {
	Sensor    *tsl2561.TSL2561
	ResultsDB *sql.DB
	DBPath    string
	AutoGain  bool
	Location  *time.Location
	Log       logrus.FieldLogger

	mu     sync.Mutex
	manual ManualWindow

	// overridden in tests
	sleep func(time.Duration)
	now   func() time.Time
}

// ManualWindow tracks the most recent manual integration period.
type ManualWindow struct {
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"startedAt"`
	Ms        uint16    `json:"ms"`
}

type Reading struct {
	ReadingID   string    `json:"readingID"`
	Gain        string    `json:"gain"`
	Integration string    `json:"integration"`
	Ms          uint16    `json:"ms"`
	Channel0    uint16    `json:"ch0"`
	Channel1    uint16    `json:"ch1"`
	Lux         float64   `json:"lux"`
	LuxInt      uint32    `json:"luxInt"`
	Saturated   bool      `json:"saturated"`
	Visible     float64   `json:"visible"`
	Infrared    float64   `json:"infrared"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Status struct {
	Connected   bool         `json:"connected"`
	Address     string       `json:"address"`
	PartID      string       `json:"partID"`
	Gain        string       `json:"gain"`
	Integration string       `json:"integration"`
	Ms          uint16       `json:"ms"`
	AutoGain    bool         `json:"autogain"`
	BusStatus   string       `json:"busStatus"`
	Manual      ManualWindow `json:"manual"`
}

// TakeReading powers the sensor up, waits one integration period, reads both
// channels and powers it back down. In manual mode the last measured manual
// window is read instead, without autogain.
func (m *Meter) TakeReading(autoGain bool) (rd Reading, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sensor == nil {
		return Reading{}, ErrNoSensor
	}

	cfg := m.Sensor.Config()
	ms := cfg.Integration.Milliseconds()
	manual := cfg.Integration == tsl2561.TSL2561_INTEGRATIONTIME_MANUAL
	if manual {
		if m.manual.Active {
			return Reading{}, fmt.Errorf("%w: manual integration is still running", ErrBadRequest)
		}
		if m.manual.Ms == 0 {
			return Reading{}, fmt.Errorf("%w: no manual integration has been measured", ErrBadRequest)
		}
		ms = m.manual.Ms
	} else {
		if err := m.Sensor.PowerUp(); err != nil {
			return Reading{}, err
		}
		m.wait(time.Duration(ms+1) * time.Millisecond)
	}
	defer func() {
		err = multierr.Append(err, m.Sensor.PowerDown())
	}()

	sample, err := m.Sensor.GetData(autoGain && !manual)
	if err != nil {
		return Reading{}, err
	}

	// autogain may have changed the gain
	cfg = m.Sensor.Config()
	lux := m.Sensor.CalculateLux(ms, sample.Channel0, sample.Channel1)
	luxInt := m.Sensor.CalculateLuxInt(sample.Channel0, sample.Channel1)

	rd = Reading{
		ReadingID:   uuid.New().String(),
		Gain:        cfg.Gain.String(),
		Integration: cfg.Integration.String(),
		Ms:          ms,
		Channel0:    sample.Channel0,
		Channel1:    sample.Channel1,
		Lux:         lux.Lux,
		LuxInt:      luxInt.Lux,
		Saturated:   lux.Saturated || luxInt.Saturated,
		Visible:     sample.Visible(),
		Infrared:    sample.Infrared(),
		CreatedAt:   m.clock().UTC(),
	}
	log := m.logger().WithFields(logrus.Fields{
		"reading_id": rd.ReadingID,
		"gain":       rd.Gain,
		"mode":       rd.Integration,
	})
	if math.IsInf(rd.Lux, 0) || math.IsNaN(rd.Lux) {
		log.WithField("lux", fmt.Sprint(rd.Lux)).Warn("Lux is not finite, recording 0")
		rd.Lux = 0
	}
	if rd.Saturated {
		log.Warn("Sensor saturated, lux is not valid")
	}

	if err := m.recordReading(rd); err != nil {
		log.WithError(err).Error("Failed to record reading")
	}
	log.WithFields(logrus.Fields{
		"ch0": rd.Channel0,
		"ch1": rd.Channel1,
		"lux": rd.Lux,
	}).Info("Reading taken")
	return rd, nil
}

func (m *Meter) recordReading(rd Reading) error {
	if m.ResultsDB == nil {
		return nil
	}
	_, err := m.ResultsDB.Exec(
		`INSERT INTO readings
		(reading_id, gain, integration, ms, ch0, ch1, lux, lux_int, saturated, visible, infrared, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.ReadingID,
		rd.Gain,
		rd.Integration,
		rd.Ms,
		rd.Channel0,
		rd.Channel1,
		rd.Lux,
		rd.LuxInt,
		rd.Saturated,
		rd.Visible,
		rd.Infrared,
		rd.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	return err
}

// SetTiming writes a new gain and integration mode, returning the nominal
// integration time.
func (m *Meter) SetTiming(gain tsl2561.Gain, mode tsl2561.IntegrationMode) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sensor == nil {
		return 0, ErrNoSensor
	}
	if m.manual.Active {
		return 0, fmt.Errorf("%w: stop the manual integration first", ErrBadRequest)
	}
	return m.Sensor.Configure(gain, mode)
}

// StartManual powers the sensor up and opens a manual integration window.
func (m *Meter) StartManual() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sensor == nil {
		return ErrNoSensor
	}
	if m.manual.Active {
		return fmt.Errorf("%w: manual integration is already running", ErrBadRequest)
	}
	if err := m.Sensor.PowerUp(); err != nil {
		return err
	}
	if err := m.Sensor.ManualStart(); err != nil {
		return multierr.Append(err, m.Sensor.PowerDown())
	}
	m.manual = ManualWindow{Active: true, StartedAt: m.clock()}
	return nil
}

// StopManual closes the manual integration window and records its length.
func (m *Meter) StopManual() (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sensor == nil {
		return 0, ErrNoSensor
	}
	if !m.manual.Active {
		return 0, fmt.Errorf("%w: no manual integration is running", ErrBadRequest)
	}
	if err := m.Sensor.ManualStop(); err != nil {
		return 0, err
	}
	elapsed := m.clock().Sub(m.manual.StartedAt).Milliseconds()
	if elapsed > math.MaxUint16 {
		elapsed = math.MaxUint16
	}
	if elapsed < 0 {
		elapsed = 0
	}
	m.manual.Active = false
	m.manual.Ms = uint16(elapsed)
	return m.manual.Ms, nil
}

// ConfigureInterrupt sets the threshold window before enabling the output.
func (m *Meter) ConfigureInterrupt(control, persist byte, low, high uint16) error {
	if control > 3 {
		return fmt.Errorf("%w: control must be 0-3", ErrBadRequest)
	}
	if persist > 15 {
		return fmt.Errorf("%w: persist must be 0-15", ErrBadRequest)
	}
	if low > high {
		return fmt.Errorf("%w: low threshold %d is above high threshold %d", ErrBadRequest, low, high)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sensor == nil {
		return ErrNoSensor
	}
	if err := m.Sensor.SetInterruptThreshold(low, high); err != nil {
		return err
	}
	return m.Sensor.SetInterruptControl(control, persist)
}

func (m *Meter) ClearInterrupt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sensor == nil {
		return ErrNoSensor
	}
	return m.Sensor.ClearInterrupt()
}

// CurrentStatus reads the ID register to confirm the sensor still answers.
func (m *Meter) CurrentStatus() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{AutoGain: m.AutoGain, Manual: m.manual}
	if m.Sensor == nil {
		return status, ErrNoSensor
	}

	cfg := m.Sensor.Config()
	status.Address = fmt.Sprintf("0x%02x", m.Sensor.Address)
	status.Gain = cfg.Gain.String()
	status.Integration = cfg.Integration.String()
	status.Ms = cfg.Integration.Milliseconds()

	id, err := m.Sensor.ID()
	status.BusStatus = m.Sensor.LastStatus().String()
	if err != nil {
		return status, err
	}
	status.Connected = true
	status.PartID = fmt.Sprintf("0x%02x", id)
	return status, nil
}

// Take a single reading
func (m *Meter) ServeReading() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		autoGain := m.AutoGain
		if v := r.URL.Query().Get("autogain"); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				m.serveError(w, r, fmt.Errorf("%w: autogain %q", ErrBadRequest, v))
				return
			}
			autoGain = parsed
		}

		rd, err := m.TakeReading(autoGain)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		message := fmt.Sprintf("Lux: %.2f (%d), Gain: %s, Integration: %s", rd.Lux, rd.LuxInt, rd.Gain, rd.Integration)
		if rd.Saturated {
			message = fmt.Sprintf("The sensor is saturated at gain %s, %s", rd.Gain, rd.Integration)
		}
		m.respond(w, r, rd, message)
	}
}

// Change the gain and integration time
func (m *Meter) ServeTiming() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			m.serveError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		gain, err := tsl2561.ParseGain(r.FormValue("gain"))
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		mode, err := tsl2561.ParseIntegrationMode(r.FormValue("integration"))
		if err != nil {
			m.serveError(w, r, err)
			return
		}

		ms, err := m.SetTiming(gain, mode)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		m.logger().WithFields(logrus.Fields{
			"gain": gain.String(),
			"mode": mode.String(),
		}).Info("Timing updated")
		m.respond(w, r, map[string]any{
			"gain":        gain.String(),
			"integration": mode.String(),
			"ms":          ms,
		}, fmt.Sprintf("Gain: %s, Integration: %s", gain, mode))
	}
}

func (m *Meter) ServeManualStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.StartManual(); err != nil {
			m.serveError(w, r, err)
			return
		}
		ServeResponse(w, r, "Manual integration started", http.StatusOK)
	}
}

func (m *Meter) ServeManualStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, err := m.StopManual()
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		m.respond(w, r, map[string]any{"ms": ms}, fmt.Sprintf("Manual integration stopped after %dms", ms))
	}
}

// Configure the interrupt output
func (m *Meter) ServeInterrupt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			m.serveError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		control, err := formUint(r, "control", 8)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		persist, err := formUint(r, "persist", 8)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		low, err := formUint(r, "low", 16)
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		high, err := formUint(r, "high", 16)
		if err != nil {
			m.serveError(w, r, err)
			return
		}

		if err := m.ConfigureInterrupt(byte(control), byte(persist), uint16(low), uint16(high)); err != nil {
			m.serveError(w, r, err)
			return
		}
		ServeResponse(w, r, "Interrupt configured", http.StatusOK)
	}
}

func (m *Meter) ServeInterruptClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.ClearInterrupt(); err != nil {
			m.serveError(w, r, err)
			return
		}
		ServeResponse(w, r, "Interrupt cleared", http.StatusOK)
	}
}

func (m *Meter) ServeStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := m.CurrentStatus()
		if err != nil {
			m.serveError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func formUint(r *http.Request, name string, bits int) (uint64, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrBadRequest, name)
	}
	n, err := strconv.ParseUint(v, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrBadRequest, name, err)
	}
	return n, nil
}

// StatusCode maps an error to the HTTP status it is served with.
func StatusCode(err error) int {
	var busErr *tsl2561.BusError
	switch {
	case errors.As(err, &busErr), errors.Is(err, tsl2561.ErrNotFound):
		return http.StatusBadGateway
	case errors.Is(err, ErrNoSensor):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, tsl2561.ErrInvalidGain),
		errors.Is(err, tsl2561.ErrInvalidMode),
		errors.Is(err, tsl2561.ErrInvalidAddress):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (m *Meter) serveError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	entry := m.logger().WithError(err).WithField("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	ServeResponse(w, r, err.Error(), status)
}

func (m *Meter) respond(w http.ResponseWriter, r *http.Request, v any, message string) {
	if isAPIRequest(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	ServeResponse(w, r, message, http.StatusOK)
}

func isAPIRequest(r *http.Request) bool {
	return strings.Contains(r.URL.Path, "/api/v1/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Populate the response div with a message, or reply with a JSON message
func ServeResponse(w http.ResponseWriter, r *http.Request, message string, status int) {
	if isAPIRequest(r) {
		writeJSON(w, status, map[string]string{"message": message})
		return
	}

	tmpl, err := parseTemplateFile("html/response.gohtml")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = tmpl.Execute(w, message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func parseTemplateFile(path string) (*template.Template, error) {
	content, err := templateFiles.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded template: %w", err)
	}
	tmpl, err := template.New("results").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

func (m *Meter) logger() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

func (m *Meter) wait(d time.Duration) {
	if m.sleep != nil {
		m.sleep(d)
		return
	}
	time.Sleep(d)
}

func (m *Meter) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}
