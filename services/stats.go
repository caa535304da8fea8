package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Cherishclears/library-backend/models"
	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"gorm.io/gorm"
)

// DashboardCacheKey holds the cached dashboard JSON
const DashboardCacheKey = "library:stats:dashboard"

// DashboardStats are the admin dashboard counters
type DashboardStats struct {
	TotalBooks      int64     `json:"totalBooks"`
	TotalUsers      int64     `json:"totalUsers"`
	TotalBorrows    int64     `json:"totalBorrows"`
	PendingBorrows  int64     `json:"pendingBorrows"`
	ApprovedBorrows int64     `json:"approvedBorrows"`
	OverdueBorrows  int64     `json:"overdueBorrows"`
	TotalCopies     int64     `json:"totalCopies"`
	AvailableCopies int64     `json:"availableCopies"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// SystemStats describe the host the server runs on
type SystemStats struct {
	Hostname          string  `json:"hostname"`
	CPUPercent        float64 `json:"cpuPercent"`
	MemoryTotal       uint64  `json:"memoryTotal"`
	MemoryUsed        uint64  `json:"memoryUsed"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	UptimeSeconds     uint64  `json:"uptimeSeconds"`
	Goroutines        int     `json:"goroutines"`
	GoVersion         string  `json:"goVersion"`
}

// StatsCache stores the encoded dashboard between requests
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisStatsCache is a StatsCache on top of go-redis
type RedisStatsCache struct {
	rdb *redis.Client
}

// NewRedisStatsCache wraps a redis client
func NewRedisStatsCache(rdb *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{rdb: rdb}
}

func (c *RedisStatsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisStatsCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Subscriber is satisfied by *nats.Conn and *natsserver.EmbeddedNATS
type Subscriber interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// StatsService aggregates counts for the admin dashboard
type StatsService struct {
	db    *gorm.DB
	cache StatsCache
	ttl   time.Duration
}

// NewStatsService creates a stats service. cache may be nil.
func NewStatsService(db *gorm.DB, cache StatsCache, ttl time.Duration) *StatsService {
	return &StatsService{db: db, cache: cache, ttl: ttl}
}

// Dashboard returns the dashboard counters, from cache when possible.
// Cache failures fall back to the database.
func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, DashboardCacheKey)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Stats cache read failed")
		} else if ok {
			var stats DashboardStats
			if err := json.Unmarshal(raw, &stats); err == nil {
				return &stats, nil
			}
			log.Warn().Msg("⚠️ Discarding undecodable cached stats")
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, DashboardCacheKey, raw, s.ttl); err != nil {
				log.Warn().Err(err).Msg("⚠️ Stats cache write failed")
			}
		}
	}
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{GeneratedAt: time.Now().UTC()}

	if err := db.Model(&models.Book{}).Count(&stats.TotalBooks).Error; err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&models.Borrow{}).Count(&stats.TotalBorrows).Error; err != nil {
		return nil, fmt.Errorf("failed to count borrows: %w", err)
	}

	var byStatus []struct {
		Status models.BorrowStatus
		Count  int64
	}
	if err := db.Model(&models.Borrow{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count borrows by status: %w", err)
	}
	for _, row := range byStatus {
		switch row.Status {
		case models.BorrowPending:
			stats.PendingBorrows = row.Count
		case models.BorrowApproved:
			stats.ApprovedBorrows = row.Count
		case models.BorrowOverdue:
			stats.OverdueBorrows = row.Count
		}
	}

	var copies struct {
		Total     int64
		Available int64
	}
	if err := db.Model(&models.Book{}).
		Select("COALESCE(SUM(total_copies), 0) as total, COALESCE(SUM(available_copies), 0) as available").
		Scan(&copies).Error; err != nil {
		return nil, fmt.Errorf("failed to sum copies: %w", err)
	}
	stats.TotalCopies = copies.Total
	stats.AvailableCopies = copies.Available

	return stats, nil
}

// Invalidate drops the cached dashboard
func (s *StatsService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, DashboardCacheKey); err != nil {
		log.Warn().Err(err).Msg("⚠️ Stats cache invalidation failed")
	}
}

// WatchEvents invalidates the cache whenever a borrow event is published
func (s *StatsService) WatchEvents(sub Subscriber) (*nats.Subscription, error) {
	return sub.Subscribe(BorrowSubjectWildcard, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Invalidate(ctx)
	})
}

// System samples host CPU, memory and uptime. Probes that fail are left at zero.
func (s *StatsService) System(ctx context.Context) SystemStats {
	stats := SystemStats{
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryTotal = memInfo.Total
		stats.MemoryUsed = memInfo.Used
		stats.MemoryUsedPercent = memInfo.UsedPercent
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Hostname = info.Hostname
		stats.UptimeSeconds = info.Uptime
	}
	return stats
}
