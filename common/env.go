package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func GetEnvOrDefault(env string, defaultValue int) int {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	num, err := strconv.Atoi(strings.TrimSpace(os.Getenv(env)))
	if err != nil {
		SysError(fmt.Sprintf("failed to parse %s: %s, using default value: %d", env, err.Error(), defaultValue))
		return defaultValue
	}
	return num
}

func GetEnvOrDefaultString(env string, defaultValue string) string {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	return os.Getenv(env)
}

func GetEnvOrDefaultBool(env string, defaultValue bool) bool {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(env)))
	if err != nil {
		SysError(fmt.Sprintf("failed to parse %s: %s, using default value: %t", env, err.Error(), defaultValue))
		return defaultValue
	}
	return b
}

func GetEnvOrDefaultFloat(env string, defaultValue float64) float64 {
	if env == "" || os.Getenv(env) == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(env)), 64)
	if err != nil {
		SysError(fmt.Sprintf("failed to parse %s: %s, using default value: %v", env, err.Error(), defaultValue))
		return defaultValue
	}
	return f
}

// InitEnv 读取进程级配置，需在加载 .env 之后调用
func InitEnv() {
	DebugEnabled = GetEnvOrDefaultBool("DEBUG", false)
	Port = GetEnvOrDefault("PORT", Port)
	SQLitePath = GetEnvOrDefaultString("SQLITE_PATH", SQLitePath)
	FrontendDir = GetEnvOrDefaultString("FRONTEND_DIR", FrontendDir)
}
