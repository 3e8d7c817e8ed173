// internal/utils/logger/config.go
package logger

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string `mapstructure:"level"` // debug, info, warn, error; пусто = по Development
	LogFile     string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`    // мегабайты
	MaxAge      int    `mapstructure:"max_age"`     // дни
	MaxBackups  int    `mapstructure:"max_backups"` // количество файлов
	Compress    bool   `mapstructure:"compress"`    // сжимать ротированные файлы
	Development bool   `mapstructure:"development"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "launchpad.log",
		MaxSize:     100,  // 100 MB
		MaxAge:      7,    // 7 дней
		MaxBackups:  3,    // 3 файла
		Compress:    true, // сжимать старые логи
		Development: false,
	}
}

func (c *Config) level() (zapcore.Level, error) {
	if c.Level == "" {
		if c.Development {
			return zapcore.DebugLevel, nil
		}
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return lvl, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return lvl, nil
}
