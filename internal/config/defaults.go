package config

// Default returns the built-in configuration values applied before any TOML
// file is read.
func Default() Config {
	return Config{
		Scan: Scan{
			LegacyMinBytes:  100 * 1024 * 1024,
			GeneralMinBytes: 1024,
			Extensions:      []string{".mp4", ".mov", ".avi", ".mkv", ".mpg", ".mpeg", ".wmv", ".m4v"},
		},
		Selection: Selection{
			BlurThreshold:       100.0,
			SimilarityThreshold: 0.9,
			SampleFPS:           2,
		},
		Scenes: Scenes{
			ChangeThreshold: 0.4,
			MinSceneSeconds: 1.0,
		},
		Transcode: Transcode{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			CRF:           17,
			Preset:        "veryslow",
			AudioBitrate:  "256k",
			ProxyBitrate:  "128k",
		},
		Gemini: Gemini{
			Model:                 "gemini-1.5-flash",
			BaseURL:               "https://generativelanguage.googleapis.com",
			PollIntervalSeconds:   3,
			AnalyzeTimeoutSeconds: 300,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
