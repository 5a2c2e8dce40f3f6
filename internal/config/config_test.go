package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "22548" {
		t.Errorf("port = %s, want 22548", cfg.Port)
	}
	if cfg.JWTExpiration != 12*time.Hour {
		t.Errorf("jwt expiration = %s, want 12h", cfg.JWTExpiration)
	}
	if cfg.GamePortRangeStart != 30000 || cfg.GamePortRangeStop != 31000 {
		t.Errorf("port range = [%d, %d), want [30000, 31000)", cfg.GamePortRangeStart, cfg.GamePortRangeStop)
	}
}

func TestLoadParsesSetValues(t *testing.T) {
	t.Setenv("JWT_EXPIRATION_TIME", "45m")
	t.Setenv("GAME_PORT_RANGE_START", "40000")

	cfg := Load()
	if cfg.JWTExpiration != 45*time.Minute {
		t.Errorf("jwt expiration = %s, want 45m", cfg.JWTExpiration)
	}
	if cfg.GamePortRangeStart != 40000 {
		t.Errorf("port range start = %d, want 40000", cfg.GamePortRangeStart)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("REVERSE_PROXY_IPS", "10.0.0.1, 10.0.0.2,,10.0.0.3 ")

	cfg := Load()
	want := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	if len(cfg.ReverseProxyIPs) != len(want) {
		t.Fatalf("proxies = %v, want %v", cfg.ReverseProxyIPs, want)
	}
	for i, ip := range want {
		if cfg.ReverseProxyIPs[i] != ip {
			t.Errorf("proxies[%d] = %s, want %s", i, cfg.ReverseProxyIPs[i], ip)
		}
	}
}
