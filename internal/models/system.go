package models

import "time"

// SystemMetrics summarises process level counters for the admin dashboard.
type SystemMetrics struct {
	CacheHitRatio            float64        `json:"cacheHitRatio"`
	CacheHits                uint64         `json:"cacheHits"`
	CacheMisses              uint64         `json:"cacheMisses"`
	RequestsTotal            uint64         `json:"requestsTotal"`
	AverageRequestDurationMs float64        `json:"averageRequestDurationMs"`
	WalletOperations         uint64         `json:"walletOperations"`
	WalletFailures           uint64         `json:"walletFailures"`
	NotificationsSent        uint64         `json:"notificationsSent"`
	QueueDepths              map[string]int `json:"queueDepths,omitempty"`
	Goroutines               int            `json:"goroutines"`
	GeneratedAt              time.Time      `json:"generatedAt"`
}
