package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var defaultRegistryManager = &RegistryManager{
	registerer: prometheus.DefaultRegisterer,
}

// RegistryManager 管理默认的 Prometheus Registerer, 支持在测试中注入自定义实现。
type RegistryManager struct {
	mu         sync.RWMutex
	registerer prometheus.Registerer
}

// SetRegisterer 设置全局 Registerer。
func SetRegisterer(r prometheus.Registerer) {
	defaultRegistryManager.Set(r)
}

// GetRegisterer 返回当前的 Registerer。
func GetRegisterer() prometheus.Registerer {
	return defaultRegistryManager.Get()
}

// Set 设置 Registerer。
func (m *RegistryManager) Set(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerer = r
}

// Get 获取 Registerer。
func (m *RegistryManager) Get() prometheus.Registerer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.registerer == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registerer
}
