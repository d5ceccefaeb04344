package config

import (
	"github.com/amirbiron/prompt-enhancer/utils"
)

type RedisConfig struct {
	URL     string
	Enabled bool
}

// LoadRedisConfig reads the cache settings. Redis is optional; with an
// empty URL the service runs with caching disabled.
func LoadRedisConfig() RedisConfig {
	url := utils.GetEnvAsString("REDIS_URL", "")
	return RedisConfig{
		URL:     url,
		Enabled: url != "",
	}
}
