package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestViperConfigGetString(t *testing.T) {
	v := viper.New()
	v.Set("name", "test")
	cfg := New(v)

	if got := cfg.GetString("name"); got != "test" {
		t.Errorf("GetString('name') = %q, want %q", got, "test")
	}
}

func TestViperConfigGetInt(t *testing.T) {
	v := viper.New()
	v.Set("port", 8080)
	cfg := New(v)

	if got := cfg.GetInt("port"); got != 8080 {
		t.Errorf("GetInt('port') = %d, want %d", got, 8080)
	}
}

func TestViperConfigGetBool(t *testing.T) {
	v := viper.New()
	v.Set("enabled", true)
	cfg := New(v)

	if got := cfg.GetBool("enabled"); !got {
		t.Error("GetBool('enabled') = false, want true")
	}
}

func TestViperConfigGetDuration(t *testing.T) {
	v := viper.New()
	v.Set("timeout", "5s")
	cfg := New(v)

	want := 5 * time.Second
	if got := cfg.GetDuration("timeout"); got != want {
		t.Errorf("GetDuration('timeout') = %v, want %v", got, want)
	}
}

func TestViperConfigIsSet(t *testing.T) {
	v := viper.New()
	v.Set("exists", true)
	cfg := New(v)

	if !cfg.IsSet("exists") {
		t.Error("IsSet('exists') = false, want true")
	}
	if cfg.IsSet("missing") {
		t.Error("IsSet('missing') = true, want false")
	}
}

func TestViperConfigSub(t *testing.T) {
	v := viper.New()
	v.Set("neighbors.mdns", true)
	v.Set("neighbors.timeout", "2s")
	cfg := New(v)

	sub := cfg.Sub("neighbors")
	if sub == nil {
		t.Fatal("Sub('neighbors') = nil")
	}
	if got := sub.GetBool("mdns"); !got {
		t.Error("sub.GetBool('mdns') = false, want true")
	}
	if got := sub.GetDuration("timeout"); got != 2*time.Second {
		t.Errorf("sub.GetDuration('timeout') = %v, want %v", got, 2*time.Second)
	}
}

func TestViperConfigSubMissing(t *testing.T) {
	v := viper.New()
	cfg := New(v)

	sub := cfg.Sub("nonexistent")
	if sub == nil {
		t.Fatal("Sub('nonexistent') should return empty Config, not nil")
	}
	// Should return zero values without panic.
	if got := sub.GetString("anything"); got != "" {
		t.Errorf("empty config GetString() = %q, want empty", got)
	}
	if sub.IsSet("anything") {
		t.Error("empty config IsSet() = true, want false")
	}
}

func TestViperConfigUnmarshal(t *testing.T) {
	v := viper.New()
	v.Set("store.path", "/var/lib/subnetsweep/history.db")
	v.Set("scan.max_in_flight", 256)
	cfg := New(v)

	var target Settings
	if err := cfg.Unmarshal(&target); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if target.Store.Path != "/var/lib/subnetsweep/history.db" {
		t.Errorf("Store.Path = %q, want %q", target.Store.Path, "/var/lib/subnetsweep/history.db")
	}
	if target.Scan.MaxInFlight != 256 {
		t.Errorf("Scan.MaxInFlight = %d, want %d", target.Scan.MaxInFlight, 256)
	}
}

func TestNilViper(t *testing.T) {
	cfg := New(nil)
	// Should not panic and return zero values.
	if got := cfg.GetString("key"); got != "" {
		t.Errorf("nil viper GetString() = %q, want empty", got)
	}
	if got := cfg.GetStringSlice("key"); got != nil {
		t.Errorf("nil viper GetStringSlice() = %v, want nil", got)
	}
	if err := cfg.Unmarshal(&Settings{}); err != nil {
		t.Errorf("nil viper Unmarshal() = %v, want nil", err)
	}
}
