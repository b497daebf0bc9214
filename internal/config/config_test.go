package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManager_ReadWrite(t *testing.T) {
	original := &Config{
		Address:  "wss://mail.example.com/v1/lotus/imap",
		Token:    "secret",
		LogLevel: "debug",
		CacheTTL: Duration(5 * time.Minute),
		Fetch:    FetchConfig{Start: 1, End: 50, Limit: 50},
	}

	var buf bytes.Buffer

	m := &Manager{}

	require.NoError(t, m.Write(&buf, original))
	require.Contains(t, buf.String(), `cache_ttl = "5m0s"`)

	got, err := m.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestManager_Read(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    func(*Config)
		wantErr bool
	}{
		"empty keeps defaults": {
			input: ``,
			want:  func(*Config) {},
		},
		"partial": {
			input: "token = \"abc\"\n[fetch]\nend = 20\n",
			want: func(cfg *Config) {
				cfg.Token = "abc"
				cfg.Fetch.End = 20
			},
		},
		"duration": {
			input: `cache_ttl = "30s"`,
			want: func(cfg *Config) {
				cfg.CacheTTL = Duration(30 * time.Second)
			},
		},
		"bad duration": {
			input:   `cache_ttl = "soon"`,
			wantErr: true,
		},
		"not toml": {
			input:   `address: nowhere`,
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := (&Manager{}).Read(strings.NewReader(tc.input))

			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)

			want := Default()
			tc.want(want)

			require.Equal(t, want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		modify  func(*Config)
		wantErr bool
	}{
		"default": {
			modify: func(*Config) {},
		},
		"no address": {
			modify:  func(cfg *Config) { cfg.Address = "" },
			wantErr: true,
		},
		"bad level": {
			modify:  func(cfg *Config) { cfg.LogLevel = "loud" },
			wantErr: true,
		},
		"zero ttl": {
			modify:  func(cfg *Config) { cfg.CacheTTL = 0 },
			wantErr: true,
		},
		"reversed window": {
			modify:  func(cfg *Config) { cfg.Fetch.Start, cfg.Fetch.End = 10, 5 },
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)

			if tc.wantErr {
				require.Error(t, cfg.Validate())
			} else {
				require.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv(TokenEnv, "from-env")
	t.Setenv(LogLevelEnv, "trace")

	cfg := Default()
	cfg.Token = "from-file"

	cfg.ApplyEnv()

	require.Equal(t, "from-env", cfg.Token)
	require.Equal(t, "trace", cfg.LogLevel)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lotus", "config.toml")

	cfg := Default()
	cfg.Token = "secret"

	require.NoError(t, Init(path, cfg))

	got, err := ReadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)

	// A second init must not overwrite the file.
	require.Error(t, Init(path, Default()))
}

func TestReadFromFile_Missing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
