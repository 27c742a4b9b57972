package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bitcoinfees/ethgas/predict"
)

type RedisConfig struct {
	URL    string `yaml:"url" json:"url"`
	Prefix string `yaml:"prefix" json:"prefix"`
	TTL    int    `yaml:"ttl" json:"ttl"` // Key expiry in seconds, 0 for none
}

// Redis stores the JSON documents under prefixed keys, and announces each new
// recommendation on the updates channel.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("redis url %q has no host", MaskURL(cfg.URL))
	}
	password, _ := parsedURL.User.Password()
	client := redis.NewClient(&redis.Options{
		Addr:     parsedURL.Host,
		Password: password,
		DB:       0,
	})
	return &Redis{client: client, cfg: cfg}, nil
}

// Key returns the redis key of the named document.
func (r *Redis) Key(name string) string {
	return r.cfg.Prefix + name
}

// Channel returns the channel on which recommendations are published.
func (r *Redis) Channel() string {
	return r.cfg.Prefix + "updates"
}

func (r *Redis) Publish(ctx context.Context, rec *predict.Recommendation, table predict.Table) error {
	recb, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	tableb, err := json.Marshal(table)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ttl := time.Duration(r.cfg.TTL) * time.Second
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.Key(RecommendationName), recb, ttl)
	pipe.Set(ctx, r.Key(TableName), tableb, ttl)
	pipe.Publish(ctx, r.Channel(), recb)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) String() string {
	return fmt.Sprintf("redis(%s)", MaskURL(r.cfg.URL))
}

// MaskURL hides the password in a URL, for display.
func MaskURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
