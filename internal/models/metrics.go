package models

import "time"

// MetricsSnapshot summarises process counters for the JSON metrics endpoint.
type MetricsSnapshot struct {
	RequestsTotal uint64    `json:"requestsTotal"`
	CacheHits     uint64    `json:"cacheHits"`
	CacheMisses   uint64    `json:"cacheMisses"`
	CacheHitRatio float64   `json:"cacheHitRatio"`
	Imports       uint64    `json:"imports"`
	SchedulerRuns uint64    `json:"schedulerRuns"`
	Goroutines    int       `json:"goroutines"`
	GeneratedAt   time.Time `json:"generatedAt"`
}
