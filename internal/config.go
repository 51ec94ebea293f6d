package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host               string        `env:"HOST,default=0.0.0.0"`
	Port               int           `env:"PORT,default=8000"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath     string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath      string        `env:"BLUGE_FILEPATH,required=true"`
	EventBufferSize    int           `env:"EVENT_BUFFER_SIZE,default=100"`
	DeliveryBufferSize int           `env:"DELIVERY_BUFFER_SIZE,default=100"`
	LimitMessages      *int          `env:"LIMIT_MESSAGES"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=30s"`
	CharReplacement    string        `env:"CHARACTER_REPLACEMENT,default=*"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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
