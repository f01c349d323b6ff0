package layer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/transitmap/pkg/errors"
)

// Open returns the store named by rawURL:
//
//	mem://                          MemoryStore
//	file:///path/to/dir             FileStore ("file://" alone uses the default directory)
//	redis://host:6379/0?prefix=p:   RedisStore
//	mongodb://host:27017/dbname     MongoStore (database defaults to "transitmap")
func Open(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse layer store url")
	}
	switch u.Scheme {
	case "mem", "memory":
		return NewMemoryStore(), nil
	case "file":
		s, err := NewFileStore(fileDir(u))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis", "rediss":
		prefix := u.Query().Get("prefix")
		q := u.Query()
		q.Del("prefix")
		u.RawQuery = q.Encode()
		s, err := NewRedisStore(ctx, u.String(), prefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongodb", "mongodb+srv":
		s, err := NewMongoStore(ctx, rawURL, strings.Trim(u.Path, "/"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"unsupported layer store scheme %q (want one of %s)", u.Scheme, strings.Join(Backends, ", "))
	}
}

func fileDir(u *url.URL) string {
	if u.Host != "" {
		return u.Host + u.Path
	}
	return u.Path
}

// Describe returns a short human-readable name for a store URL with any
// credentials removed.
func Describe(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	if u.Scheme == "file" {
		return fmt.Sprintf("file store at %s", fileDir(u))
	}
	return u.Redacted()
}
