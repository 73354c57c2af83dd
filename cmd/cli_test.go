package cmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Options
		wantErr bool
	}{
		{
			name: "no args runs the daemon",
			want: Options{Run: true},
		},
		{
			name: "flags",
			args: []string{"--config", "car.yaml", "-v", "--tui", "--routing", "0:media,call,unknown"},
			want: Options{ConfigPath: "car.yaml", Verbose: true, TUIMode: true, Routing: "0:media,call,unknown", Run: true},
		},
		{
			name: "policy command",
			args: []string{"policy", "-r", "0:media"},
			want: Options{Command: CommandPolicy, Routing: "0:media"},
		},
		{
			name: "version command",
			args: []string{"version"},
			want: Options{Command: CommandVersion},
		},
		{
			name:    "unknown flag",
			args:    []string{"--frobnicate"},
			wantErr: true,
		},
		{
			name:    "stray argument",
			args:    []string{"policy", "extra"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("ParseArgs(%q) mismatch (-want +got):\n%s", tt.args, diff)
			}
		})
	}
}
