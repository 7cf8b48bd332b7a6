package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// GetEnvOrDefault 获取环境变量，如果不存在则返回默认值
// 这是配置加载的核心函数：环境变量 > 默认值
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvIntOrDefault 获取整型环境变量，解析失败时返回默认值
func GetEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvFloatOrDefault 获取浮点型环境变量，解析失败时返回默认值
func GetEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// MustGetEnv 获取环境变量，如果不存在则 panic
// 用于必须配置的敏感信息（如数据库密码）
func MustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic("环境变量 " + key + " 未设置，但它是必需的")
	}
	return value
}

// GetEnvIntSlice 获取逗号分隔的整型列表环境变量
// 任一元素解析失败时整体回退到默认值，避免半截配置。
func GetEnvIntSlice(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

// GetDatabaseURL 构建数据库连接字符串
// 优先级：DATABASE_URL 完整 URL > 按 DB_* 环境变量拼装
func GetDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		GetEnvOrDefault("DB_USER", "postgres"),
		GetEnvOrDefault("DB_PASSWORD", "postgres"),
		GetEnvOrDefault("DB_HOST", "localhost"),
		GetEnvIntOrDefault("DB_PORT", 5432),
		GetEnvOrDefault("DB_NAME", "rpgwar"),
		GetEnvOrDefault("DB_SSLMODE", "disable"),
	)
}
