package memory

import (
	"runtime/debug"
	"testing"
)

func restoreLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestApplyLimitFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		limit     string
		ratio     string
		source    string
		wantLimit int64
		wantRatio float64
	}{
		{"unset", "", "", "none", 0, 0},
		{"invalid", "lots", "", "none", 0, 0},
		{"negative", "-5", "", "none", 0, 0},
		{"default ratio", "1000000", "", "MEMORY_LIMIT", 750000, DefaultMemoryRatio},
		{"custom ratio", "1000000", "0.5", "MEMORY_LIMIT", 500000, 0.5},
		{"ratio out of range", "1000000", "1.5", "MEMORY_LIMIT", 750000, DefaultMemoryRatio},
		{"ratio not a number", "1000000", "half", "MEMORY_LIMIT", 750000, DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			got := ApplyLimitFromEnv()
			if got.Source != tt.source {
				t.Errorf("Source = %q, want %q", got.Source, tt.source)
			}
			if got.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.wantLimit)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Configured() != (tt.wantLimit > 0) {
				t.Errorf("Configured() = %v", got.Configured())
			}
			if tt.wantLimit > 0 && debug.SetMemoryLimit(-1) != tt.wantLimit {
				t.Errorf("runtime limit = %d, want %d", debug.SetMemoryLimit(-1), tt.wantLimit)
			}
		})
	}
}

func TestApplyLimitFromEnvPrefersGOMEMLIMIT(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "512MiB")
	t.Setenv("MEMORY_LIMIT", "1000000")

	got := ApplyLimitFromEnv()
	if got.Source != "GOMEMLIMIT" {
		t.Errorf("Source = %q, want GOMEMLIMIT", got.Source)
	}
	if got.ContainerLimit != 0 {
		t.Errorf("ContainerLimit = %d, want 0", got.ContainerLimit)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024 / 2, "1.5 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
