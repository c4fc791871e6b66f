package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`

	SinkBufferSize   int   `env:"SINK_BUFFER_SIZE,required=true"`
	NotifyQueueSize  int   `env:"NOTIFY_QUEUE_SIZE,required=true"`
	TelemetrySize    int   `env:"TELEMETRY_BUFFER_SIZE,required=true"`
	MaxMessageLength int64 `env:"MAX_MESSAGE_LENGTH,required=true"`

	PresenceWindow  time.Duration `env:"PRESENCE_COALESCE_WINDOW,required=true"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`

	PushURL         string        `env:"PUSH_URL"`
	PushBatchSize   int           `env:"PUSH_BATCH_SIZE,required=true"`
	PushTimeout     time.Duration `env:"PUSH_TIMEOUT,required=true"`
	NotifyOfflineOnly bool        `env:"NOTIFY_OFFLINE_ONLY,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	EnableModeration bool   `env:"ENABLE_MODERATION,required=true"`
	CharReplacement  string `env:"CHARACTER_REPLACEMENT,required=true"`

	LatencyThreshold     time.Duration `env:"LATENCY_THRESHOLD,required=true"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,required=true"`

	AllowedOrigins string `env:"ALLOWED_ORIGINS,required=true"`

	DebugPort int `env:"DEBUG_PORT"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
