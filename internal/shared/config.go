package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vila_mar/internal/domain"
)

// FeedJob is one (room, source) pair with a configured iCal URL.
type FeedJob struct {
	Room        domain.Room
	Source      domain.Source
	URL         string
	DefaultBeds int
}

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	AdminUser   string
	AdminPass   string
	SyncSecret  string
	Workers     int
	CacheTTL    time.Duration
	Jobs        []FeedJob
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/vilamar?parseTime=true&charset=utf8mb4,utf8&loc=Local"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		AdminUser:   env("ADMIN_USER", "admin"),
		AdminPass:   env("ADMIN_PASS", ""),
		SyncSecret:  env("SYNC_SECRET", ""),
		Workers:     atoi("SYNC_WORKERS", 4),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		Jobs:        buildJobs(),
	}
	if c.AdminPass == "" {
		log.Warn().Msg("ADMIN_PASS is empty; admin surface will deny all requests")
	}
	if c.SyncSecret == "" {
		log.Warn().Msg("SYNC_SECRET is empty; sync trigger will deny all requests")
	}
	return c
}

// buildJobs enumerates the room x feed-source matrix from ICAL_<SOURCE>_<ROOM>
// variables. A missing or placeholder value means "not configured" and the
// pair is silently skipped.
func buildJobs() []FeedJob {
	var jobs []FeedJob
	for _, room := range []domain.Room{domain.RoomDormitorio, domain.RoomSuite, domain.RoomEstudio, domain.RoomT2} {
		for _, src := range domain.FeedSources {
			key := fmt.Sprintf("ICAL_%s_%s", strings.ToUpper(string(src)), strings.ToUpper(string(room)))
			url := feedURL(key)
			if url == "" {
				continue
			}
			jobs = append(jobs, FeedJob{Room: room, Source: src, URL: url, DefaultBeds: 1})
		}
	}
	return jobs
}

// feedURL reads an ICAL_* variable, treating empty values and the sample
// placeholder shipped in .env templates as unset.
func feedURL(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" || strings.Contains(strings.ToUpper(v), "PUT_ICAL_URL") {
		return ""
	}
	return v
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
