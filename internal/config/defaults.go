package config

const (
	defaultConfigPath            = "~/.config/tonearm/config.toml"
	defaultLibraryDir            = "~/Music"
	defaultDataDir               = "~/.local/share/tonearm"
	defaultLogDir                = "~/.local/share/tonearm/logs"
	defaultMaxFiles              = 5000
	defaultFFprobeBinary         = "ffprobe"
	defaultMusicBrainzBaseURL    = "https://musicbrainz.org/ws/2"
	defaultMusicBrainzUserAgent  = "tonearm/dev"
	defaultMinIntervalSeconds    = 2.0
	defaultRequestTimeoutSeconds = 10
	defaultSearchLimit           = 5
	defaultMaxAttempts           = 5
	defaultRetryBaseSeconds      = 30
	defaultRetryMaxSeconds       = 3600
	defaultStaleClaimSeconds     = 600
	defaultErrorRetryInterval    = 10
	defaultStartupAttempts       = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// DefaultTagAllowList lists the tag names persisted for each audio file.
var DefaultTagAllowList = []string{
	"album",
	"album-artist",
	"album-disc-number",
	"album-disc-count",
	"artist",
	"audio-codec",
	"datetime",
	"genre",
	"title",
	"track-number",
	"track-count",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Scanner: Scanner{
			MaxFiles:       defaultMaxFiles,
			FollowSymlinks: true,
			TagAllowList:   append([]string(nil), DefaultTagAllowList...),
			FFprobeBinary:  defaultFFprobeBinary,
		},
		MusicBrainz: MusicBrainz{
			BaseURL:               defaultMusicBrainzBaseURL,
			UserAgent:             defaultMusicBrainzUserAgent,
			MinIntervalSeconds:    defaultMinIntervalSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			SearchLimit:           defaultSearchLimit,
		},
		Queue: Queue{
			MaxAttempts:       defaultMaxAttempts,
			RetryBaseSeconds:  defaultRetryBaseSeconds,
			RetryMaxSeconds:   defaultRetryMaxSeconds,
			StaleClaimSeconds: defaultStaleClaimSeconds,
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultErrorRetryInterval,
			StartupAttempts:    defaultStartupAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
