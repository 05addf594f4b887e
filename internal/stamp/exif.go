package stamp

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// dateTags in order of preference.
var dateTags = []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"}

// ExifDate returns the capture date recorded in the file's EXIF block.
// ok is false when the file carries no parseable date.
func ExifDate(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	dates, err := exifDates(f)
	if err != nil {
		return time.Time{}, false
	}
	for _, name := range dateTags {
		if t, ok := dates[name]; ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func exifDates(rs io.ReadSeeker) (map[string]time.Time, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(rs, nil, true)
	if err != nil {
		return nil, err
	}

	dates := make(map[string]time.Time)
	for _, tag := range tags {
		if !isDateTag(tag.TagName) {
			continue
		}
		raw, ok := tag.Value.(string)
		if !ok {
			raw = tag.Formatted
		}
		raw = strings.Trim(strings.TrimSpace(raw), "\x00")
		t, err := time.Parse(exifTimeLayout, raw)
		if err != nil {
			continue
		}
		if _, seen := dates[tag.TagName]; !seen {
			dates[tag.TagName] = t
		}
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no exif date")
	}
	return dates, nil
}

func isDateTag(name string) bool {
	for _, n := range dateTags {
		if n == name {
			return true
		}
	}
	return false
}
