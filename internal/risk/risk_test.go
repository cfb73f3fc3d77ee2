package risk

import (
	"encoding/json"
	"testing"
)

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name     string
		critical float64
		warning  float64
		wantErr  bool
	}{
		{"valid", 1, 5, false},
		{"valid tight", 0.5, 0.6, false},
		{"critical equals warning", 5, 5, true},
		{"critical above warning", 10, 5, true},
		{"zero critical", 0, 5, true},
		{"negative critical", -1, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.critical, tt.warning)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTable(%g, %g) error = %v, wantErr %v", tt.critical, tt.warning, err, tt.wantErr)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	table, err := NewTable(1, 5)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	tests := []struct {
		distance float64
		want     Level
	}{
		{0, LevelHigh},
		{0.999, LevelHigh},
		{1, LevelMedium}, // boundary is exclusive
		{4.999, LevelMedium},
		{5, LevelLow},
		{10000, LevelLow},
	}
	for _, tt := range tests {
		if got := table.Classify(tt.distance); got != tt.want {
			t.Errorf("Classify(%g) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestLevelJSON(t *testing.T) {
	b, err := json.Marshal(LevelHigh)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"HIGH"` {
		t.Errorf("marshaled = %s, want \"HIGH\"", b)
	}
}
