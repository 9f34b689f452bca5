package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	cases := []struct {
		level, format string
		wantErr       bool
	}{
		{level: "debug", format: "json"},
		{level: "warn", format: "console"},
		{level: "info", format: ""},
		{level: "loud", format: "json", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}
	for _, tc := range cases {
		log, err := New(tc.level, tc.format)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s/%s: expected error", tc.level, tc.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.level, tc.format, err)
		}
		_ = log.Sync()
	}
}

func TestNew_Level(t *testing.T) {
	log, err := New("warn", "json")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if log.Core().Enabled(zap.InfoLevel) {
		t.Fatal("info must be disabled at warn")
	}
	if !log.Core().Enabled(zap.ErrorLevel) {
		t.Fatal("error must be enabled at warn")
	}
}
