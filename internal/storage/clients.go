package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/logging"
)

// provider describes a known S3-compatible endpoint family. Resolution is
// by hostname suffix; hosts outside this set fail fast with ConfigError.
type provider struct {
	name      string
	suffix    string
	accessEnv string
	secretEnv string
	pathStyle bool
}

var providers = []provider{
	{name: "aws", suffix: ".amazonaws.com", accessEnv: "AWS_ACCESS_KEY_ID", secretEnv: "AWS_SECRET_ACCESS_KEY"},
	{name: "backblaze", suffix: ".backblazeb2.com", accessEnv: "B2_APPLICATION_KEY_ID", secretEnv: "B2_APPLICATION_KEY"},
	{name: "wasabi", suffix: ".wasabisys.com", accessEnv: "WASABI_ACCESS_KEY_ID", secretEnv: "WASABI_SECRET_ACCESS_KEY"},
	{name: "digitalocean", suffix: ".digitaloceanspaces.com", accessEnv: "DO_SPACES_KEY", secretEnv: "DO_SPACES_SECRET", pathStyle: true},
}

func resolveProvider(host string) (provider, error) {
	for _, p := range providers {
		if strings.HasSuffix(host, p.suffix) {
			return p, nil
		}
	}
	return provider{}, &ConfigError{Host: host, Reason: "unsupported endpoint"}
}

// regionFromHost extracts the region label from endpoint hosts of the form
// "s3.<region>.<provider domain>". Hosts without a region label get the
// SDK's conventional default.
func regionFromHost(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) >= 4 && labels[0] == "s3" {
		return labels[1]
	}
	return "us-east-1"
}

// ClientCache maps endpoint hosts to reusable S3 clients. Clients are
// built lazily with resolved credentials and region, live for the process
// lifetime and are never invalidated. A client is read-only after
// construction and safe for unsynchronized concurrent use.
type ClientCache struct {
	mu             sync.Mutex
	clients        map[string]*s3.Client
	forcePathStyle bool
}

// NewClientCache creates an empty cache. The cache is owned by the
// gateway that constructs it, never ambient.
func NewClientCache(forcePathStyle bool) *ClientCache {
	return &ClientCache{
		clients:        make(map[string]*s3.Client),
		forcePathStyle: forcePathStyle,
	}
}

// Get returns the client for an endpoint host, constructing it on first
// use. Unknown hosts and missing credentials fail with ConfigError before
// any network call.
func (c *ClientCache) Get(ctx context.Context, host string) (*s3.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[host]; ok {
		return client, nil
	}

	p, err := resolveProvider(host)
	if err != nil {
		return nil, err
	}

	accessKey := os.Getenv(p.accessEnv)
	secretKey := os.Getenv(p.secretEnv)
	if accessKey == "" || secretKey == "" {
		return nil, &ConfigError{
			Host:   host,
			Reason: fmt.Sprintf("missing credentials (%s / %s)", p.accessEnv, p.secretEnv),
		}
	}

	region := regionFromHost(host)
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config for %s: %w", host, err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://" + host)
		if p.pathStyle || c.forcePathStyle {
			o.UsePathStyle = true
		}
	})

	c.clients[host] = client
	logging.Debug("object store client created",
		zap.String("host", host),
		zap.String("provider", p.name),
		zap.String("region", region))

	return client, nil
}
