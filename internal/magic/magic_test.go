package magic

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsDex(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    bool
		wantErr string
	}{
		{"Dex", "dex\n035\x00", true, ""},
		{"Odex", "dey\n036\x00", false, "odex"},
		{"CompactDex", "cdex001\x00", false, "compact dex"},
		{"Vdex", "vdex027\x00", false, "vdex"},
		{"MachO", "\xcf\xfa\xed\xfe", false, "not a dex file"},
		{"Short", "de", false, "failed to read magic"},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := IsDex(path)
			if got != tt.want {
				t.Errorf("IsDex() = %v, want %v", got, tt.want)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("IsDex() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("IsDex() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsDexMissingFile(t *testing.T) {
	if _, err := IsDex(filepath.Join(t.TempDir(), "missing.dex")); err == nil {
		t.Error("IsDex() on a missing file returned no error")
	}
}
