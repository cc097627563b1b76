package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host     string `env:"HOST,required=true"`
	Port     int    `env:"PORT,required=true"`
	LogLevel string `env:"LOG_LEVEL,required=true"`

	BadgerFilepath string  `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string  `env:"BLUGE_FILEPATH,required=true"`
	NatsURL        *string `env:"NATS_URL"`
	DefaultRoom    *string `env:"DEFAULT_ROOM"`

	SessionBufferSize int   `env:"SESSION_BUFFER_SIZE,required=true"`
	MaxFrameSize      int64 `env:"MAX_FRAME_SIZE,required=true"`
	MaxContentLength  int   `env:"MAX_CONTENT_LENGTH,required=true"`
	LimitMessages     *int  `env:"LIMIT_MESSAGES"`

	JwtSigningKey     string        `env:"JWT_SIGNING_KEY,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	CharReplacement string        `env:"CHARACTER_REPLACEMENT,required=true"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,required=true"`
	DebugPort       int           `env:"DEBUG_PORT"`
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
