package transcode

import (
	"strconv"
	"strings"
)

// segmentFilter deinterlaces tape-era sources; mode 0 keeps the original
// frame rate, parity -1 lets ffmpeg detect field order.
const segmentFilter = "bwdif=mode=0:parity=-1"

// Settings carries the tunable encode parameters.
type Settings struct {
	CRF               int
	Preset            string
	AudioBitrate      string
	ProxyAudioBitrate string
}

func (s Settings) crf() string {
	if s.CRF <= 0 {
		return "17"
	}
	return strconv.Itoa(s.CRF)
}

func (s Settings) preset() string {
	if strings.TrimSpace(s.Preset) == "" {
		return "veryslow"
	}
	return s.Preset
}

func (s Settings) audioBitrate() string {
	if strings.TrimSpace(s.AudioBitrate) == "" {
		return "256k"
	}
	return s.AudioBitrate
}

func (s Settings) proxyAudioBitrate() string {
	if strings.TrimSpace(s.ProxyAudioBitrate) == "" {
		return "128k"
	}
	return s.ProxyAudioBitrate
}

// FrameGrabArgs extracts a single frame at timestamp seconds into output.
func FrameGrabArgs(source string, timestamp float64, output string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-ss", formatSeconds(timestamp),
		"-i", source,
		"-frames:v", "1",
		output,
	}
}

// ProxyArgs assembles the condensed proxy: the selected frames played at
// one frame per second, muxed with the source's original audio re-encoded
// to AAC.
func ProxyArgs(framePattern, audioSource, output string, settings Settings) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-framerate", "1",
		"-i", framePattern,
		"-i", audioSource,
		"-c:a", "aac",
		"-b:a", settings.proxyAudioBitrate(),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", "1",
		"-shortest",
		output,
	}
}

// SegmentArgs assembles the final archival encode for one scene window.
// Audio already in AAC is passed through untouched; anything else is
// re-encoded.
func SegmentArgs(source, output string, start, end float64, copyAudio bool, settings Settings) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-i", source,
		"-c:v", "libx264",
		"-crf", settings.crf(),
		"-preset", settings.preset(),
		"-vf", segmentFilter,
		"-pix_fmt", "yuv420p",
	}
	if copyAudio {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", settings.audioBitrate())
	}
	args = append(args, "-movflags", "+faststart", output)
	return args
}

func formatSeconds(value float64) string {
	if value < 0 {
		value = 0
	}
	return strconv.FormatFloat(value, 'f', 3, 64)
}
