package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/benvon/agenda-scheduler/internal/scheduling"
)

// cadenceFile is the YAML layout of the cadence configuration. Omitted keys
// keep their default.
//
//	week_start_day: wednesday
//	lock_lead_time: 12h
//	change_window: 168h
//	lock_when_complete: true
//	timezone: Europe/Berlin
type cadenceFile struct {
	WeekStartDay     string `yaml:"week_start_day"`
	LockLeadTime     string `yaml:"lock_lead_time"`
	ChangeWindow     string `yaml:"change_window"`
	LockWhenComplete *bool  `yaml:"lock_when_complete"`
	Timezone         string `yaml:"timezone"`
}

// LoadCadence reads the cadence file at path. An empty path yields the
// default cadence.
func LoadCadence(path string) (scheduling.Cadence, error) {
	if path == "" {
		return scheduling.DefaultCadence(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return scheduling.Cadence{}, fmt.Errorf("failed to read cadence config: %w", err)
	}
	return ParseCadence(data)
}

// ParseCadence decodes a cadence YAML document on top of the defaults
func ParseCadence(data []byte) (scheduling.Cadence, error) {
	cadence := scheduling.DefaultCadence()

	var file cadenceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return scheduling.Cadence{}, fmt.Errorf("failed to parse cadence config: %w", err)
	}

	if file.WeekStartDay != "" {
		day, err := parseWeekday(file.WeekStartDay)
		if err != nil {
			return scheduling.Cadence{}, err
		}
		cadence.WeekStartDay = day
	}
	if file.LockLeadTime != "" {
		d, err := time.ParseDuration(file.LockLeadTime)
		if err != nil {
			return scheduling.Cadence{}, fmt.Errorf("invalid lock_lead_time: %w", err)
		}
		cadence.LockLeadTime = d
	}
	if file.ChangeWindow != "" {
		d, err := time.ParseDuration(file.ChangeWindow)
		if err != nil {
			return scheduling.Cadence{}, fmt.Errorf("invalid change_window: %w", err)
		}
		cadence.ChangeWindow = d
	}
	if file.LockWhenComplete != nil {
		cadence.LockWhenComplete = *file.LockWhenComplete
	}
	if file.Timezone != "" {
		loc, err := time.LoadLocation(file.Timezone)
		if err != nil {
			return scheduling.Cadence{}, fmt.Errorf("invalid timezone: %w", err)
		}
		cadence.Location = loc
	}

	if err := cadence.Validate(); err != nil {
		return scheduling.Cadence{}, fmt.Errorf("invalid cadence config: %w", err)
	}
	return cadence, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid week_start_day: %q", s)
}
