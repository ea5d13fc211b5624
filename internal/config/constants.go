package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultChannelsCSVPath = "./channels.csv"
	DefaultDBPath          = "./folio.db"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultWorkerCount   = 0  // 0 means use runtime.NumCPU()
	DefaultInterval      = 30 // Minutes between crawl runs
	DefaultRetentionDays = 30 // Days to keep crawl logs before purging

	DefaultFetchTimeout = 20 * time.Second
	DefaultUserAgent    = "folio/1.0 (+https://github.com/folio-reader)"

	DefaultNATSSubject = "folio.crawl.finished"

	DefaultLogLevel = "info"
)

// Environment variables read by FromEnv.
const (
	EnvChannelsCSVPath = "FOLIO_CSV_PATH"
	EnvDBPath          = "FOLIO_DB_PATH"
	EnvServerHost      = "FOLIO_HOST"
	EnvServerPort      = "FOLIO_PORT"
	EnvAPIKey          = "FOLIO_API_KEY"
	EnvWorkerCount     = "FOLIO_WORKER_COUNT"
	EnvInterval        = "FOLIO_INTERVAL"
	EnvRetentionDays   = "FOLIO_RETENTION_DAYS"
	EnvFetchTimeout    = "FOLIO_FETCH_TIMEOUT"
	EnvUserAgent       = "FOLIO_USER_AGENT"
	EnvNATSURL         = "FOLIO_NATS_URL"
	EnvNATSSubject     = "FOLIO_NATS_SUBJECT"
	EnvLogLevel        = "FOLIO_LOG_LEVEL"
	EnvLogJSON         = "FOLIO_LOG_JSON"
)
