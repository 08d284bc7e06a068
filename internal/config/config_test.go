package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "MISSIONCTL_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "MISSIONCTL_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "MISSIONCTL_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "MISSIONCTL_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "MISSIONCTL_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "returns fallback for empty string", key: "MISSIONCTL_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "MISSIONCTL_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "MISSIONCTL_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "MISSIONCTL_TEST_DUR_UNSET", setVal: nil, fallback: time.Second, want: time.Second},
		{name: "parses duration", key: "MISSIONCTL_TEST_DUR_VALID", setVal: strPtr("250ms"), fallback: 0, want: 250 * time.Millisecond},
		{name: "errors on raw number", key: "MISSIONCTL_TEST_DUR_RAW", setVal: strPtr("10"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Run("splits and trims", func(t *testing.T) {
		t.Setenv("MISSIONCTL_TEST_LIST", "a, b ,c,,")
		assert.Equal(t, []string{"a", "b", "c"}, getEnvList("MISSIONCTL_TEST_LIST", nil))
	})

	t.Run("fallback when unset", func(t *testing.T) {
		assert.Equal(t, []string{"x"}, getEnvList("MISSIONCTL_TEST_LIST_UNSET", []string{"x"}))
	})
}

// ---------------------------------------------------------------------------
// Load / validate
// ---------------------------------------------------------------------------

const testSecret = "0123456789abcdef0123456789abcdef" // 32 chars

func TestLoad(t *testing.T) {
	t.Run("defaults with secret set", func(t *testing.T) {
		t.Setenv("MISSIONCTL_JWT_SECRET", testSecret)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, 25, cfg.Database.MaxConns)
		assert.True(t, cfg.Workflow.Simulate)
		assert.Equal(t, 500*time.Millisecond, cfg.Workflow.Tick)
		assert.Equal(t, 15, cfg.Workflow.MaxIncrement)
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		_, err := Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "MISSIONCTL_JWT_SECRET")
	})

	t.Run("short jwt secret", func(t *testing.T) {
		t.Setenv("MISSIONCTL_JWT_SECRET", "too-short")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("invalid db port", func(t *testing.T) {
		t.Setenv("MISSIONCTL_JWT_SECRET", testSecret)
		t.Setenv("MISSIONCTL_DB_PORT", "70000")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MISSIONCTL_DB_PORT")
	})

	t.Run("invalid workflow increment", func(t *testing.T) {
		t.Setenv("MISSIONCTL_JWT_SECRET", testSecret)
		t.Setenv("MISSIONCTL_WORKFLOW_MAX_INCREMENT", "0")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MISSIONCTL_WORKFLOW_MAX_INCREMENT")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", c.DSN())
}

func strPtr(s string) *string { return &s }
