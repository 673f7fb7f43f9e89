package buildinfo

import "testing"

func TestInfoString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		info Info
		want string
	}{
		{info: Info{Version: "dev"}, want: "dev"},
		{info: Info{Version: "v1.2.0", Tags: "netgo"}, want: "v1.2.0 (tags: netgo)"},
		{
			info: Info{Version: "dev", Revision: "0123456789abcdef0123", Modified: true},
			want: "dev (rev: 0123456789ab-dirty)",
		},
		{
			info: Info{Version: "dev", Revision: "abc", Tags: "x"},
			want: "dev (rev: abc, tags: x)",
		},
	}
	for _, tt := range tests {
		if got := tt.info.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestReadHasVersion(t *testing.T) {
	t.Parallel()

	if Read().Version == "" {
		t.Fatal("Read().Version is empty")
	}
}
