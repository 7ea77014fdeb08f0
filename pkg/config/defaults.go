package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "medportal"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultTokenTTL = 24 * time.Hour

	DefaultAgentBaseURL      = "http://localhost:8000"
	DefaultChatRetryAttempts = 3
	DefaultChatRetryDelay    = 1 * time.Second

	DefaultSweepInterval            = 1 * time.Hour
	DefaultAppointmentCheckInterval = 5 * time.Minute

	DefaultKafkaEventsTopic = "portal.events"

	// WriteStrategyLastWriteWins keeps source behavior: concurrent merges
	// may overwrite each other at the record level.
	WriteStrategyLastWriteWins  = "last-write-wins"
	WriteStrategyCompareAndSwap = "compare-and-swap"

	DefaultWriteStrategy = WriteStrategyLastWriteWins
	DefaultCASMaxRetries = 3

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 10 * 1024 * 1024 // uploads go through this surface

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
