package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

const keyPrefix = "climate:report:"

// Cache keeps recent location reports in Valkey with a TTL. It implements
// pipeline.ReportCache.
type Cache struct {
	client valkeygo.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to addr, which is either host:port or a redis:// URL,
// and verifies the connection with a PING.
func New(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	opt, err := clientOptions(addr)
	if err != nil {
		return nil, fmt.Errorf("valkey options: %w", err)
	}
	client, err := valkeygo.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	c := &Cache{client: client, ttl: ttl, logger: logger}
	if err := c.CheckReadiness(ctx); err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("valkey report cache connected", "addr", opt.InitAddress, "ttl", ttl)
	return c, nil
}

func clientOptions(addr string) (valkeygo.ClientOption, error) {
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "://") {
		return valkeygo.ParseURL(addr)
	}
	if addr == "" {
		return valkeygo.ClientOption{}, fmt.Errorf("address is empty")
	}
	return valkeygo.ClientOption{InitAddress: []string{addr}}, nil
}

// Get returns the cached report for key.
func (c *Cache) Get(ctx context.Context, key domain.LocationKey) (domain.LocationReport, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(cacheKey(key)).Build()).AsBytes()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return domain.LocationReport{}, false, nil
		}
		return domain.LocationReport{}, false, fmt.Errorf("valkey get %s: %w", key, err)
	}

	var report domain.LocationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return domain.LocationReport{}, false, fmt.Errorf("decode cached report %s: %w", key, err)
	}
	return report, true, nil
}

// Set stores report under its location key for the configured TTL.
func (c *Cache) Set(ctx context.Context, report domain.LocationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.Key, err)
	}

	builder := c.client.B().Set().Key(cacheKey(report.Key)).Value(valkeygo.BinaryString(payload))
	var cmd valkeygo.Completed
	if c.ttl > 0 {
		cmd = builder.Ex(expiry(c.ttl)).Build()
	} else {
		cmd = builder.Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", report.Key, err)
	}
	return nil
}

// CheckReadiness sends a PING.
func (c *Cache) CheckReadiness(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.client.Do(pingCtx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (c *Cache) Close() {
	c.client.Close()
}

func cacheKey(key domain.LocationKey) string {
	return keyPrefix + string(key)
}

// expiry returns ttl at the whole-second resolution of SET EX, at least one second.
func expiry(ttl time.Duration) time.Duration {
	if ttl < time.Second {
		return time.Second
	}
	return ttl.Round(time.Second)
}
