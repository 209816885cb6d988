package main

import (
	"testing"
	"time"

	"github.com/amishk599/jobdeck/internal/config"
	"github.com/amishk599/jobdeck/internal/model"
)

func TestSourceTimeouts(t *testing.T) {
	cfg := &config.Config{
		API:     config.APIConfig{Timeout: 10 * time.Second},
		Sources: map[string]time.Duration{model.SourceRecommendations: 4 * time.Second},
	}

	got := sourceTimeouts(cfg)

	want := map[string]time.Duration{
		model.SourceJobs:            10 * time.Second,
		model.SourceRecommendations: 4 * time.Second,
		model.SourceSkillsDemand:    10 * time.Second,
		model.SourceSalaryInsights:  10 * time.Second,
	}
	if len(got) != len(want) {
		t.Fatalf("sourceTimeouts() = %v, want %v", got, want)
	}
	for name, d := range want {
		if got[name] != d {
			t.Errorf("timeout for %s = %v, want %v", name, got[name], d)
		}
	}
}
