// AngelaMos | 2026
// dto.go

package admin

import (
	"time"
)

type PlatformStats struct {
	Days   int            `json:"days"`
	Since  time.Time      `json:"since"`
	Users  UserStats      `json:"users"`
	Plans  map[string]int `json:"active_plans"`
	Images map[string]int `json:"images_by_status"`
	Usage  UsageStats     `json:"usage"`
}

type UserStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Trial  int `json:"trial"`
}

type UsageStats struct {
	Uploaded int `json:"uploaded"`
	Edited   int `json:"edited"`
	Total    int `json:"total"`
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
