package storage

import (
	"context"
	"errors"
	"testing"
)

func TestResolveProvider(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"s3.eu-west-1.amazonaws.com", "aws"},
		{"s3.us-west-004.backblazeb2.com", "backblaze"},
		{"s3.eu-central-1.wasabisys.com", "wasabi"},
		{"fra1.digitaloceanspaces.com", "digitalocean"},
	}
	for _, c := range cases {
		p, err := resolveProvider(c.host)
		if err != nil {
			t.Errorf("resolveProvider(%q) failed: %v", c.host, err)
			continue
		}
		if p.name != c.want {
			t.Errorf("resolveProvider(%q) = %q, want %q", c.host, p.name, c.want)
		}
	}
}

func TestResolveProviderUnknownHost(t *testing.T) {
	_, err := resolveProvider("minio.internal.example.org")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if cfgErr.Host != "minio.internal.example.org" {
		t.Errorf("host = %q", cfgErr.Host)
	}
}

func TestRegionFromHost(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"s3.eu-central-1.amazonaws.com", "eu-central-1"},
		{"s3.us-west-004.backblazeb2.com", "us-west-004"},
		{"fra1.digitaloceanspaces.com", "us-east-1"}, // no s3. prefix
		{"s3.amazonaws.com", "us-east-1"},            // no region label
	}
	for _, c := range cases {
		if got := regionFromHost(c.host); got != c.want {
			t.Errorf("regionFromHost(%q) = %q, want %q", c.host, got, c.want)
		}
	}
}

func TestClientCacheUnknownHostFailsBeforeNetwork(t *testing.T) {
	cache := NewClientCache(false)
	_, err := cache.Get(context.Background(), "not-a-provider.example.org")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error = %v, want ConfigError", err)
	}
}

func TestClientCacheMissingCredentials(t *testing.T) {
	t.Setenv("WASABI_ACCESS_KEY_ID", "")
	t.Setenv("WASABI_SECRET_ACCESS_KEY", "")

	cache := NewClientCache(false)
	_, err := cache.Get(context.Background(), "s3.eu-central-1.wasabisys.com")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

func TestClientCacheReuse(t *testing.T) {
	t.Setenv("WASABI_ACCESS_KEY_ID", "test-key")
	t.Setenv("WASABI_SECRET_ACCESS_KEY", "test-secret")

	cache := NewClientCache(false)
	a, err := cache.Get(context.Background(), "s3.eu-central-1.wasabisys.com")
	if err != nil {
		t.Fatalf("first Get failed: %v", err)
	}
	b, err := cache.Get(context.Background(), "s3.eu-central-1.wasabisys.com")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if a != b {
		t.Error("same host should reuse one client")
	}
}
