// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/papercomputeco/haven/pkg/vector"
	"github.com/papercomputeco/haven/pkg/vector/chroma"
	"github.com/papercomputeco/haven/pkg/vector/qdrant"
	"github.com/papercomputeco/haven/pkg/vector/sqlitevec"
)

const (
	ProviderSQLite = "sqlite"
	ProviderChroma = "chroma"
	ProviderQdrant = "qdrant"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is the Chroma URL, the Qdrant host[:port], or the sqlite-vec
	// database path.
	TargetURL string

	// SQLitePath is used by the sqlite provider when TargetURL is empty.
	SQLitePath string

	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderSQLite, "sqlite-vec", "":
		path := o.TargetURL
		if path == "" {
			path = o.SQLitePath
		}
		return sqlitevec.New(sqlitevec.Config{
			DBPath:     path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL: o.TargetURL,
		}, o.Logger)
	case ProviderQdrant:
		host, port, tls, err := splitQdrantTarget(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.New(ctx, qdrant.Config{
			Host:       host,
			Port:       port,
			UseTLS:     tls,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// splitQdrantTarget accepts "host", "host:port" or a URL.
func splitQdrantTarget(target string) (string, int, bool, error) {
	tls := false
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", 0, false, fmt.Errorf("parsing qdrant target: %w", err)
		}
		tls = u.Scheme == "https"
		target = u.Host
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, 0, tls, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, tls, nil
}
