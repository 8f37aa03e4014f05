package main

import (
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/asyncdata"
	"github.com/unkn0wn-root/asyncdata/codec"
	gen "github.com/unkn0wn-root/asyncdata/genstore"
	pr "github.com/unkn0wn-root/asyncdata/provider"
	"github.com/unkn0wn-root/asyncdata/provider/bigcache"
	"github.com/unkn0wn-root/asyncdata/provider/redis"
	"github.com/unkn0wn-root/asyncdata/provider/ristretto"
)

type Config struct {
	Listen    string        `yaml:"listen"`
	Namespace string        `yaml:"namespace"`
	Log       LogConfig     `yaml:"log"`
	Payload   PayloadConfig `yaml:"payload"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type PayloadConfig struct {
	Provider  string        `yaml:"provider"` // ristretto | bigcache | redis
	Codec     string        `yaml:"codec"`    // json | msgpack | cbor | protobuf
	TTL       time.Duration `yaml:"ttl"`
	MaxDecode int           `yaml:"maxDecode"`

	Ristretto struct {
		MaxCostMB int64 `yaml:"maxCostMB"`
	} `yaml:"ristretto"`
	Bigcache struct {
		HardMaxCacheSizeMB int `yaml:"hardMaxCacheSizeMB"`
	} `yaml:"bigcache"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

func defaultConfig() Config {
	c := Config{Listen: ":8080", Namespace: "demo"}
	c.Log.Level = "info"
	c.Payload.Provider = "ristretto"
	c.Payload.Codec = "json"
	c.Payload.TTL = time.Minute
	c.Payload.Redis.Addr = "localhost:6379"
	return c
}

// getConfig layers filename over the defaults.
func getConfig(filename string) (Config, error) {
	config := defaultConfig()
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}

func (c Config) codec() (codec.Codec[asyncdata.Document], error) {
	switch c.Payload.Codec {
	case "", "json":
		return codec.JSON[asyncdata.Document]{}, nil
	case "msgpack":
		return codec.Msgpack[asyncdata.Document]{}, nil
	case "cbor":
		return codec.NewCBOR[asyncdata.Document](true)
	case "protobuf":
		return codec.Struct[asyncdata.Document]{}, nil
	}
	return nil, fmt.Errorf("unsupported codec %q", c.Payload.Codec)
}

// backend builds the payload provider and, for redis, a generation store
// shared by every replica. closeFn releases what backend opened.
func (c Config) backend() (p pr.Provider, g gen.GenStore, closeFn func() error, err error) {
	closeFn = func() error { return nil }
	switch c.Payload.Provider {
	case "", "ristretto":
		p, err = ristretto.New(ristretto.Config{MaxCost: c.Payload.Ristretto.MaxCostMB << 20, Sync: true})
	case "bigcache":
		p, err = bigcache.New(bigcache.Config{LifeWindow: c.Payload.TTL, HardMaxCacheSizeMB: c.Payload.Bigcache.HardMaxCacheSizeMB})
	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     c.Payload.Redis.Addr,
			Password: c.Payload.Redis.Password,
			DB:       c.Payload.Redis.DB,
		})
		closeFn = rdb.Close
		if p, err = redis.New(redis.Config{Client: rdb, Prefix: c.Namespace + ":", MaxTTL: time.Hour}); err != nil {
			break
		}
		g, err = gen.NewRedisGenStore(gen.RedisConfig{Client: rdb, Namespace: c.Namespace, TTL: 24 * time.Hour})
	default:
		err = fmt.Errorf("unsupported payload provider %q", c.Payload.Provider)
	}
	if err != nil {
		_ = closeFn()
		return nil, nil, nil, err
	}
	return p, g, closeFn, nil
}
