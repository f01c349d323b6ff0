package cache

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Open returns the backend named by rawURL:
//
//	""  or "none"        NullCache
//	mem://?size=512      MemoryCache
//	file:///path/to/dir  FileCache
//	redis://host:6379/0  RedisCache (keys prefixed "transitmap:")
func Open(ctx context.Context, rawURL string) (Cache, error) {
	if rawURL == "" || rawURL == "none" {
		return NewNullCache(), nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse cache url: %w", err)
	}
	switch u.Scheme {
	case "mem", "memory":
		size := 0
		if s := u.Query().Get("size"); s != "" {
			if size, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("cache size %q: %w", s, err)
			}
		}
		return NewMemoryCache(size), nil
	case "file":
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + dir
		}
		c, err := NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "redis", "rediss":
		c, err := NewRedisCache(ctx, rawURL, "transitmap:")
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cache scheme %q (want %s)", u.Scheme,
			strings.Join([]string{"mem", "file", "redis"}, ", "))
	}
}
