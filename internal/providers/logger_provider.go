package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"gmd/internal/structures"
)

type TypeEnum int

const (
	TypeApp TypeEnum = iota
	TypePoll
	TypeWebhook
	TypeApi
)

func (t TypeEnum) String() string {
	switch t {
	case TypePoll:
		return "poll"
	case TypeWebhook:
		return "webhook"
	case TypeApi:
		return "api"
	default:
		return "app"
	}
}

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

// ZeroLogProvider fans log records out to one file per subsystem, each
// tagged with its type. In debug mode everything is mirrored to stderr.
type ZeroLogProvider struct {
	loggers map[TypeEnum]zerolog.Logger
	files   []*os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", conf.Logger.Level, err)
	}

	if info, err := os.Stat(conf.Logger.Dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("log dir %s is not usable", conf.Logger.Dir)
	}

	provider := &ZeroLogProvider{loggers: make(map[TypeEnum]zerolog.Logger)}

	for _, t := range []TypeEnum{TypeApp, TypePoll, TypeWebhook, TypeApi} {
		path := filepath.Join(conf.Logger.Dir, t.String()+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, os.FileMode(conf.Logger.Mode))
		if err != nil {
			provider.Close()
			return nil, fmt.Errorf("unable to open log file %s: %w", path, err)
		}
		provider.files = append(provider.files, file)

		var logger zerolog.Logger
		if conf.Debug {
			console := zerolog.ConsoleWriter{Out: os.Stderr}
			logger = zerolog.New(zerolog.MultiLevelWriter(file, console))
		} else {
			logger = zerolog.New(file)
		}
		provider.loggers[t] = logger.Level(level).With().Timestamp().Str("type", t.String()).Logger()
	}

	return provider, nil
}

func (p *ZeroLogProvider) logger(t TypeEnum) zerolog.Logger {
	if l, ok := p.loggers[t]; ok {
		return l
	}
	return p.loggers[TypeApp]
}

func (p *ZeroLogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l := p.logger(t)
	l.Error().Msgf(format, args...)
}

func (p *ZeroLogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l := p.logger(t)
	l.Warn().Msgf(format, args...)
}

func (p *ZeroLogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l := p.logger(t)
	l.Info().Msgf(format, args...)
}

func (p *ZeroLogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l := p.logger(t)
	l.Debug().Msgf(format, args...)
}

func (p *ZeroLogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l := p.logger(t)
	l.Fatal().Msgf(format, args...)
}

func (p *ZeroLogProvider) Close() {
	for _, f := range p.files {
		_ = f.Close()
	}
}
