package config

type CacheConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// Cache selects Redis when REDIS_ADDR is set, otherwise an in-process cache is used.
type Cache struct {
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

var _ CacheConfig = Cache{}

func (c Cache) GetRedisAddr() string     { return c.RedisAddr }
func (c Cache) GetRedisPassword() string { return c.RedisPassword }
func (c Cache) GetRedisDB() int          { return c.RedisDB }
