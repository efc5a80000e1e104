package scenes

import (
	"regexp"
	"strconv"
)

var showinfoPTS = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// parseShowinfoTimes extracts frame timestamps from ffmpeg showinfo
// output. Each surviving frame of the select filter produces one line
// carrying a pts_time field.
func parseShowinfoTimes(output string) []float64 {
	matches := showinfoPTS.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	times := make([]float64, 0, len(matches))
	for _, match := range matches {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		times = append(times, value)
	}
	return times
}
