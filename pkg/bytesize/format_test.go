package bytesize

import (
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{
			name:  "bytes",
			input: 42,
			want:  "42B",
		},
		{
			name:  "kilobytes",
			input: 1536,
			want:  "1.50KB",
		},
		{
			name:  "megabytes",
			input: 512 * 1024 * 1024,
			want:  "512.00MB",
		},
		{
			name:  "gigabytes",
			input: 1024 * 1024 * 1024,
			want:  "1.00GB",
		},
		{
			name:  "terabytes",
			input: int64(1024) * 1024 * 1024 * 1024,
			want:  "1.00TB",
		},
		{
			name:  "zero",
			input: 0,
			want:  "0B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.input)
			if got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
