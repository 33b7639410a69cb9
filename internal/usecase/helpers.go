package usecase

import (
	"fmt"
	"regexp"
	"time"
)

const nameTimestampLayout = "2006-01-02_15.04.05"

var nameTimestampPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})_(\d{2}\.\d{2}\.\d{2})`)

// extractTimestamp pulls the run timestamp out of a run-log or archive
// name, e.g. bkp_2024-03-05_14.05.00.log or myorg_2024-03-05_14.05.00.tar.gz.
func extractTimestamp(filename string) (time.Time, error) {
	matches := nameTimestampPattern.FindStringSubmatch(filename)
	if len(matches) < 3 {
		return time.Time{}, fmt.Errorf("invalid filename format: no timestamp found")
	}

	return time.Parse(nameTimestampLayout, matches[1]+"_"+matches[2])
}
