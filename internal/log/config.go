package log

import (
	"io"
	stdlog "log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level       string `mapstructure:"level"`
	Pretty      bool   `mapstructure:"pretty"`
	ServiceName string `mapstructure:"service_name"`
}

var (
	root zerolog.Logger
	once sync.Once
)

func init() {
	// Usable before Init runs, so early startup failures still log.
	root = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// New builds a logger for the given configuration. Unknown level strings
// fall back to info rather than erroring; the service should not refuse
// to start over a typo in LOG_LEVEL.
func New(cfg Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		logger = logger.With().Str(FieldService, cfg.ServiceName).Logger()
	}
	return logger
}

// Init installs the process-wide logger. Call once at startup. The stdlib
// log package is redirected too, so stray log.Printf calls from
// dependencies come out as structured lines.
func Init(cfg Config) {
	once.Do(func() {
		root = New(cfg)

		stdlog.SetFlags(0)
		stdlog.SetOutput(root.With().Str("source", "stdlog").Logger())
	})
}

// L returns the process-wide logger.
func L() *zerolog.Logger {
	return &root
}
