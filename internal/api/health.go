package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/pkg/httputil"
)

const (
	statusUp       = "up"
	statusDown     = "down"
	statusDegraded = "degraded"

	notConfigured = "not configured"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// BucketHeader is the part of the S3 client the archive check needs.
type BucketHeader interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// dependency is one entry in the health report. A nil ping means it is not
// configured. Responses slower than slow report as degraded.
type dependency struct {
	name     string
	critical bool
	timeout  time.Duration
	slow     time.Duration
	ping     func(ctx context.Context) error
}

// HealthChecker reports on the database, Redis and the issue archive.
type HealthChecker struct {
	deps      []dependency
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker. Any dependency can be nil.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, bucket BucketHeader, bucketName string) *HealthChecker {
	database := dependency{name: "database", critical: true, timeout: 3 * time.Second, slow: time.Second}
	if db != nil {
		database.ping = db.PingContext
	}
	cache := dependency{name: "redis", timeout: 2 * time.Second, slow: 500 * time.Millisecond}
	if redisClient != nil {
		cache.ping = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	archive := dependency{name: "archive", timeout: 3 * time.Second, slow: 2 * time.Second}
	if bucket != nil && bucketName != "" {
		archive.ping = func(ctx context.Context) error {
			_, err := bucket.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &bucketName})
			return err
		}
	}

	return &HealthChecker{
		deps:      []dependency{database, cache, archive},
		startTime: time.Now(),
	}
}

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks, overall := hc.run(r.Context())
	httputil.OK(w, HealthStatus{
		Status: overall,
		Uptime: time.Since(hc.startTime).Round(time.Second).String(),
		Checks: checks,
	})
}

// HandleLiveness answers 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "alive"})
}

// HandleReadiness answers 503 while a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks, overall := hc.run(r.Context())
	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

// run executes every dependency concurrently and folds the results:
// "unhealthy" if a configured critical dependency is down, "degraded" if any
// configured dependency is slow or down, "healthy" otherwise.
func (hc *HealthChecker) run(ctx context.Context) (map[string]ComponentCheck, string) {
	type result struct {
		dep   dependency
		check ComponentCheck
	}
	ch := make(chan result, len(hc.deps))
	for _, d := range hc.deps {
		go func() { ch <- result{d, d.check(ctx)} }()
	}

	checks := make(map[string]ComponentCheck, len(hc.deps))
	overall := "healthy"
	for range hc.deps {
		r := <-ch
		checks[r.dep.name] = r.check
		switch {
		case r.check.Message == notConfigured:
		case r.check.Status == statusDown && r.dep.critical:
			overall = "unhealthy"
		case r.check.Status != statusUp && overall == "healthy":
			overall = "degraded"
		}
	}
	return checks, overall
}

func (p dependency) check(ctx context.Context) ComponentCheck {
	if p.ping == nil {
		return ComponentCheck{Status: statusDown, Message: notConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.ping(ctx)
	latency := time.Since(start)

	switch {
	case err != nil:
		return ComponentCheck{Status: statusDown, Latency: latency.String(), Message: fmt.Sprintf("ping failed: %v", err)}
	case latency > p.slow:
		return ComponentCheck{Status: statusDegraded, Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: statusUp, Latency: latency.String()}
}
