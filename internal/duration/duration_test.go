package duration_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/discord-auction-bot/internal/duration"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    time.Duration
		wantErr error
	}{
		{"minutes", "5m", 5 * time.Minute, nil},
		{"hours", "2h", 2 * time.Hour, nil},
		{"uppercase", "10M", 10 * time.Minute, nil},
		{"surrounding whitespace", " 1h ", time.Hour, nil},
		{"zero", "0m", 0, duration.ErrNonPositiveDuration},
		{"negative", "-5m", 0, duration.ErrUnknownUnit},
		{"unknown unit", "5d", 0, duration.ErrUnknownUnit},
		{"trailing characters", "5mm", 0, duration.ErrUnknownUnit},
		{"decimal", "1.5h", 0, duration.ErrUnknownUnit},
		{"missing number", "m", 0, duration.ErrUnknownUnit},
		{"empty", "", 0, duration.ErrUnknownUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := duration.Parse(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse(%q) error = %v, want %v", tt.text, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
