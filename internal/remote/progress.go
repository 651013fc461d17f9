package remote

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

// ProgressRecords tracks which years, year/months, and exact dates have
// completed extraction, so repeated orchestrator runs resume instead of
// rediscovering and refetching what is already done (spec §4.8).
type ProgressRecords struct {
	Years         map[string]bool            `yaml:"years"`
	MonthsPerYear map[string]map[string]bool `yaml:"months_per_year"`
	Dates         map[string]bool            `yaml:"dates"`

	recordsDir string
}

func progressPaths(recordsDir string) (years, months, dates string) {
	return filepath.Join(recordsDir, "processed_years.yaml"),
		filepath.Join(recordsDir, "processed_months_per_year.yaml"),
		filepath.Join(recordsDir, "processed_dates.yaml")
}

// LoadProgress reads the three progress files, tolerating any or all being
// absent (a fresh cache starts with nothing processed).
func LoadProgress(recordsDir string) (*ProgressRecords, error) {
	yearsPath, monthsPath, datesPath := progressPaths(recordsDir)

	p := &ProgressRecords{
		Years:         map[string]bool{},
		MonthsPerYear: map[string]map[string]bool{},
		Dates:         map[string]bool{},
		recordsDir:    recordsDir,
	}

	if err := loadYAMLIfPresent(yearsPath, &p.Years); err != nil {
		return nil, err
	}
	if err := loadYAMLIfPresent(monthsPath, &p.MonthsPerYear); err != nil {
		return nil, err
	}
	if err := loadYAMLIfPresent(datesPath, &p.Dates); err != nil {
		return nil, err
	}
	return p, nil
}

func loadYAMLIfPresent(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.New("REMOTE_PROGRESS_READ_FAILED", "remote", "load_progress", "could not read progress file").
			WithMetadata("path", path).Wrap(err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return apperr.New("REMOTE_PROGRESS_READ_FAILED", "remote", "load_progress", "could not parse progress file").
			WithMetadata("path", path).Wrap(err)
	}
	return nil
}

// RecordDate appends a single completed date, both in memory and on disk,
// via an exclusive-append line — mirroring the append-only discipline C2
// uses for file-processing records. This is intentionally append-only
// rather than a full rewrite, so a crash mid-day-loop never loses already
// completed dates.
func (p *ProgressRecords) RecordDate(date string) error {
	p.Dates[date] = true
	_, _, datesPath := progressPaths(p.recordsDir)

	f, err := os.OpenFile(datesPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.New("REMOTE_PROGRESS_WRITE_FAILED", "remote", "record_date", "could not open processed_dates.yaml").
			WithMetadata("path", datesPath).Wrap(err)
	}
	defer f.Close()

	if _, err := f.WriteString(date + ": true\n"); err != nil {
		return apperr.New("REMOTE_PROGRESS_WRITE_FAILED", "remote", "record_date", "could not append processed date").
			WithMetadata("path", datesPath).Wrap(err)
	}
	return f.Sync()
}

// AggregateAndPersist rolls per-day progress up into month/year completion
// flags for every year/month touched this run, using a leap-year-aware
// day-count, then atomically persists both files (spec §4.8 "Progress
// aggregation").
func (p *ProgressRecords) AggregateAndPersist(touchedMonths map[string][]string) error {
	for year, months := range touchedMonths {
		if p.MonthsPerYear[year] == nil {
			p.MonthsPerYear[year] = map[string]bool{}
		}
		for _, month := range months {
			processed := 0
			prefix := year + "-" + month + "-"
			for date := range p.Dates {
				if len(date) >= len(prefix) && date[:len(prefix)] == prefix {
					processed++
				}
			}
			if processed == daysInMonth(year, month) {
				p.MonthsPerYear[year][month] = true
			}
		}

		if len(p.MonthsPerYear[year]) == 12 {
			p.Years[year] = true
		}
	}

	yearsPath, monthsPath, _ := progressPaths(p.recordsDir)
	if err := writeYAMLAtomic(monthsPath, p.MonthsPerYear); err != nil {
		return err
	}
	return writeYAMLAtomic(yearsPath, p.Years)
}

// daysInMonth returns the number of days in the given YYYY/MM, leap-year
// aware, by asking time.Date for "the zeroth day of next month".
func daysInMonth(yearStr, monthStr string) int {
	year, month := 0, 0
	for _, r := range yearStr {
		year = year*10 + int(r-'0')
	}
	for _, r := range monthStr {
		month = month*10 + int(r-'0')
	}
	return time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC).Day()
}

func writeYAMLAtomic(path string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return apperr.New("REMOTE_PROGRESS_WRITE_FAILED", "remote", "write_yaml_atomic", "could not serialize progress").
			WithMetadata("path", path).Wrap(err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.New("REMOTE_PROGRESS_WRITE_FAILED", "remote", "write_yaml_atomic", "could not write temp progress file").
			WithMetadata("path", path).Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.New("REMOTE_PROGRESS_WRITE_FAILED", "remote", "write_yaml_atomic", "could not rename progress file into place").
			WithMetadata("path", path).Wrap(err)
	}
	return nil
}
