package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"gmd/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("ghost.url", "GMD_GHOST_URL")
	viper.BindEnv("ghost.adminApiKey", "GMD_ADMIN_API_KEY")
	viper.BindEnv("poll.interval", "GMD_POLL_INTERVAL")
	viper.BindEnv("webhook.secret", "GMD_WEBHOOK_SECRET")
	viper.BindEnv("webhook.publicUrl", "GMD_PUBLIC_URL")
	viper.BindEnv("logger.level", "GMD_LOG_LEVEL")
	viper.BindEnv("persistence.saveInterval", "GMD_SAVE_INTERVAL")
	viper.BindEnv("cache.enabled", "GMD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "GMD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "GhostMetricsDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
