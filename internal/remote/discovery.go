package remote

import (
	"context"
	"sort"
	"strings"
)

// downloadKind records whether a date's files should be fetched via a
// directory-wildcard copy (nested layout) or a per-object batch (flat
// manifest layout), per spec §4.8.2.
type downloadKind int

const (
	downloadNested downloadKind = iota
	downloadManifest
)

// discoveredDate is one candidate date plus how to fetch it.
type discoveredDate struct {
	date string
	kind downloadKind
}

// discoverDates implements the Y/M/D discovery walk merged with an optional
// flat manifest (spec §4.8.1). touchedMonths collects every year/month this
// call examined, for later progress aggregation regardless of whether new
// dates were found there.
func discoverDates(ctx context.Context, client S3Client, bucket string, progress *ProgressRecords, manifest map[string][]string) (dates []discoveredDate, touchedMonths map[string][]string, err error) {
	touchedMonths = map[string][]string{}
	byDate := map[string]downloadKind{}

	for date := range manifest {
		if !progress.Dates[date] {
			byDate[date] = downloadManifest
		}
	}

	years, err := client.ListCommonPrefixes(ctx, bucket, "")
	if err != nil {
		return nil, nil, err
	}
	years = append(years, manifestYears(manifest)...)

	unprocessedYears := subtractAndDedupe(years, progress.Years)

	for _, year := range unprocessedYears {
		months, err := client.ListCommonPrefixes(ctx, bucket, year+"/")
		if err != nil {
			continue
		}
		months = append(months, manifestMonths(manifest, year)...)

		processedMonths := progress.MonthsPerYear[year]
		unprocessedMonths := subtractAndDedupe(months, processedMonths)
		touchedMonths[year] = append(touchedMonths[year], unprocessedMonths...)

		for _, month := range unprocessedMonths {
			days, err := client.ListCommonPrefixes(ctx, bucket, year+"/"+month+"/")
			if err != nil {
				continue
			}
			for _, day := range days {
				date := year + "-" + month + "-" + day
				if !progress.Dates[date] {
					if _, already := byDate[date]; !already {
						byDate[date] = downloadNested
					}
				}
			}
			for date := range manifest {
				if strings.HasPrefix(date, year+"-"+month+"-") && !progress.Dates[date] {
					byDate[date] = downloadManifest
				}
			}
		}
	}

	sortedDates := make([]string, 0, len(byDate))
	for date := range byDate {
		sortedDates = append(sortedDates, date)
	}
	sort.Strings(sortedDates)

	for _, date := range sortedDates {
		dates = append(dates, discoveredDate{date: date, kind: byDate[date]})
	}
	return dates, touchedMonths, nil
}

// applyFlushBufferAndLimit drops the two most recent dates (AWS's own flush
// latency, spec §4.8.1 step 3) and optionally truncates to dateLimit.
func applyFlushBufferAndLimit(dates []discoveredDate, dateLimit int) []discoveredDate {
	if len(dates) <= 2 {
		return nil
	}
	dates = dates[:len(dates)-2]
	if dateLimit > 0 && dateLimit < len(dates) {
		dates = dates[:dateLimit]
	}
	return dates
}

func manifestYears(manifest map[string][]string) []string {
	seen := map[string]bool{}
	var out []string
	for date := range manifest {
		year := strings.SplitN(date, "-", 2)[0]
		if !seen[year] {
			seen[year] = true
			out = append(out, year)
		}
	}
	return out
}

func manifestMonths(manifest map[string][]string, year string) []string {
	seen := map[string]bool{}
	var out []string
	prefix := year + "-"
	for date := range manifest {
		if !strings.HasPrefix(date, prefix) {
			continue
		}
		parts := strings.SplitN(date, "-", 3)
		if len(parts) < 2 {
			continue
		}
		if !seen[parts[1]] {
			seen[parts[1]] = true
			out = append(out, parts[1])
		}
	}
	return out
}

func subtractAndDedupe(values []string, processed map[string]bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		if processed[v] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
