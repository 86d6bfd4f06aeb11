package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/ztkent/lightmeter/internal/bus"
	"github.com/ztkent/lightmeter/internal/config"
	"github.com/ztkent/lightmeter/internal/lightmeter"
	"github.com/ztkent/lightmeter/internal/tools"
	"github.com/ztkent/lightmeter/tsl2561"
	"go.uber.org/multierr"
)

/*
	Entry point for the Lightmeter service.
	It runs at startup on a Raspberry Pi with a TSL2561 connected to the I2C bus,
	and takes a reading whenever one is requested.

	Usage: lightmeter [config.yaml]
*/

func main() {
	var cfgPath string
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}
	config.Normalize(cfg)

	logger, logFile, err := tools.NewLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()
	logger.WithField("pid", os.Getpid()).Info("Lightmeter starting")

	// connect to the lux sensor
	conn, sensor, err := connectSensor(cfg.Sensor, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to the TSL2561 sensor: %v", err)
	}

	// connect to the sqlite database
	db, err := tools.ConnectSqlite(cfg.Storage.DBPath)
	if err != nil {
		// Unlike connecting to the sensor, this should always work.
		logger.Fatalf("Failed to connect to the sqlite database: %v", err)
	}
	defer func() {
		if err := closeAll(conn, db); err != nil {
			logger.WithError(err).Error("Shutdown failed")
		}
	}()

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		logger.Fatalf("Failed to load timezone: %v", err)
	}

	r := chi.NewRouter()
	// Log requests and recover from panics
	r.Use(middleware.Logger)
	r.Use(handleServerPanic)
	defineRoutes(r, &lightmeter.Meter{
		Sensor:    sensor,
		ResultsDB: db,
		DBPath:    cfg.Storage.DBPath,
		AutoGain:  *cfg.Sensor.AutoGain,
		Location:  loc,
		Log:       logger,
	}, cfg.Server.LocalOnly)

	if cfg.Server.TLS {
		// Generate a self-signed certificate if one doesn't exist
		if err := tools.EnsureCertificate(cfg.Server.CertFile, cfg.Server.KeyFile, cfg.Server.Hosts); err != nil {
			logger.Fatalf("Failed to prepare TLS certificate: %v", err)
		}
		logger.Infof("Starting HTTPS server on %s", cfg.Server.Listen)
		err = http.ListenAndServeTLS(cfg.Server.Listen, cfg.Server.CertFile, cfg.Server.KeyFile, r)
	} else {
		logger.Infof("Starting HTTP server on %s", cfg.Server.Listen)
		err = http.ListenAndServe(cfg.Server.Listen, r)
	}
	if err != nil {
		logger.Errorf("Server stopped: %v", err)
	}
}

// connectSensor opens the bus, checks the part ID and applies the configured
// timing. The sensor is left powered down until a reading is requested.
func connectSensor(cfg config.SensorConfig, logger *logrus.Logger) (bus.Conn, *tsl2561.TSL2561, error) {
	gain, mode, err := cfg.Timing()
	if err != nil {
		return nil, nil, err
	}
	conn, err := bus.Open(cfg.Transport, cfg.Bus, cfg.Address)
	if err != nil {
		return nil, nil, err
	}
	sensor, err := tsl2561.New(conn, cfg.Address)
	if err != nil {
		return nil, nil, multierr.Append(err, conn.Close())
	}
	sensor.Log = logger.WithField("sensor", fmt.Sprintf("0x%02x", sensor.Address))

	if err := setupSensor(sensor, gain, mode); err != nil {
		return nil, nil, multierr.Append(err, conn.Close())
	}
	return conn, sensor, nil
}

func setupSensor(sensor *tsl2561.TSL2561, gain tsl2561.Gain, mode tsl2561.IntegrationMode) error {
	if err := sensor.Begin(); err != nil {
		return err
	}
	if _, err := sensor.Configure(gain, mode); err != nil {
		return err
	}
	return sensor.PowerDown()
}

func closeAll(conn bus.Conn, db *sql.DB) error {
	var err error
	if conn != nil {
		err = multierr.Append(err, conn.Close())
	}
	if db != nil {
		err = multierr.Append(err, db.Close())
	}
	return err
}

func defineRoutes(r chi.Router, meter *lightmeter.Meter, localOnly bool) {
	// Routes that drive the sensor can be limited to the local network
	controls := func(r chi.Router) {
		if localOnly {
			r.Use(tools.CheckInNetwork)
		}
	}

	// Lightmeter Dashboard
	r.Get("/", meter.ServeDashboard())
	r.Route("/lightmeter", func(r chi.Router) {
		controls(r)
		r.Get("/status", meter.ServeSensorStatus())
		r.Get("/reading", meter.ServeReading())
		r.Post("/timing", meter.ServeTiming())
		r.Post("/manual/start", meter.ServeManualStart())
		r.Post("/manual/stop", meter.ServeManualStop())
		r.Post("/interrupt/clear", meter.ServeInterruptClear())
		r.Post("/graph", meter.ServeResultsGraph())
	})

	// Lightmeter API, these serve a JSON response
	r.Route("/api/v1", func(r chi.Router) {
		controls(r)
		r.Get("/reading", meter.ServeReading())
		r.Post("/timing", meter.ServeTiming())
		r.Post("/manual/start", meter.ServeManualStart())
		r.Post("/manual/stop", meter.ServeManualStop())
		r.Post("/interrupt", meter.ServeInterrupt())
		r.Post("/interrupt/clear", meter.ServeInterruptClear())
		r.Get("/status", meter.ServeStatus())
		r.Get("/history", meter.ServeHistory())
		r.Get("/export", meter.ServeResultsDB())
	})

	// Route for service identification
	r.Get("/id", func(w http.ResponseWriter, r *http.Request) {
		response := struct {
			ServiceName string `json:"service_name"`
		}{
			ServiceName: lightmeter.SERVICE_NAME,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	})
}

func handleServerPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				lightmeter.ServeResponse(w, r, fmt.Sprintf("%v", err), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
