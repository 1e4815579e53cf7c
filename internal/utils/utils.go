package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gramshiksha/gramshiksha-client/internal/logger"
)

func GetEnv(name, def string, log *logger.Logger) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func GetEnvAsInt64(name string, def int64, log *logger.Logger) int64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		if log != nil {
			log.Warn("Invalid integer env value, using default", "name", name, "value", v, "default", def)
		}
		return def
	}
	return i
}

func GetEnvAsFloat(name string, def float64, log *logger.Logger) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if log != nil {
			log.Warn("Invalid float env value, using default", "name", name, "value", v, "default", def)
		}
		return def
	}
	return f
}

func GetEnvAsDuration(name string, def time.Duration, log *logger.Logger) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if log != nil {
			log.Warn("Invalid duration env value, using default", "name", name, "value", v, "default", def)
		}
		return def
	}
	return d
}
