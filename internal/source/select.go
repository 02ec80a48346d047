package source

import (
	"regexp"
	"strings"
	"time"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
)

// MatchExportWindow keeps the export objects for the last `days` calendar
// days (UTC). Export keys embed their date as `-yyyymmdd-` and end in
// `.csv.gz`; days=1 means today only.
func MatchExportWindow(objects []rows.ObjectInfo, now time.Time, days int) []rows.ObjectInfo {
	if days < 1 {
		days = 1
	}
	patterns := make([]*regexp.Regexp, 0, days)
	for i := 0; i < days; i++ {
		date := now.UTC().AddDate(0, 0, -i).Format("20060102")
		patterns = append(patterns, regexp.MustCompile(`-`+date+`-.*\.csv\.gz$`))
	}
	var out []rows.ObjectInfo
	for _, obj := range objects {
		for _, p := range patterns {
			if p.MatchString(obj.Key) {
				out = append(out, obj)
				break
			}
		}
	}
	return out
}

// LatestArtifact returns today's newest delta artifact with the given key
// prefix, by LastModified. The boolean is false when none exists. Artifact
// keys carry an ISO timestamp, so matching today's `2006-01-02` date plus a
// `.csv` suffix is sufficient.
func LatestArtifact(objects []rows.ObjectInfo, prefix string, now time.Time) (rows.ObjectInfo, bool) {
	today := now.UTC().Format("2006-01-02")
	var best rows.ObjectInfo
	found := false
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		if !strings.Contains(obj.Key, today) || !strings.HasSuffix(obj.Key, ".csv") {
			continue
		}
		if !found || obj.LastModified.After(best.LastModified) {
			best = obj
			found = true
		}
	}
	return best, found
}
