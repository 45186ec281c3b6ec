package config

const (
	defaultConfigPath         = "~/.config/vimeodl/config.toml"
	projectConfigName         = "vimeodl.toml"
	defaultOutputDir          = "~/Downloads/vimeo"
	defaultLogDir             = "~/.local/share/vimeodl/logs"
	defaultStateDir           = "~/.local/share/vimeodl"
	defaultYtDlpBinary        = "yt-dlp"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultConcurrentFrags    = 16
	defaultToolTimeoutSeconds = 3 * 60 * 60
	defaultUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	defaultHTTPTimeoutSeconds = 30
	defaultMaxManifestBytes   = 8 << 20
	defaultServerBind         = "127.0.0.1:5000"
	// Chrome refuses to deliver messages larger than 64 MiB to a native host.
	defaultMaxMessageBytes = 64 << 20
	defaultMaxTitleLength  = 200
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogFileLevel    = "debug"
	defaultLogRetention    = 30

	envOutputDir = "VIMEODL_OUTPUT_DIR"
	envUserAgent = "VIMEODL_USER_AGENT"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Tools: Tools{
			YtDlp:               defaultYtDlpBinary,
			FFmpeg:              defaultFFmpegBinary,
			FFprobe:             defaultFFprobeBinary,
			ConcurrentFragments: defaultConcurrentFrags,
			TimeoutSeconds:      defaultToolTimeoutSeconds,
		},
		HTTP: HTTP{
			UserAgent:        defaultUserAgent,
			TimeoutSeconds:   defaultHTTPTimeoutSeconds,
			MaxManifestBytes: defaultMaxManifestBytes,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Bridge: Bridge{
			MaxMessageBytes: defaultMaxMessageBytes,
		},
		Naming: Naming{
			MaxTitleLength: defaultMaxTitleLength,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			FileLevel:     defaultLogFileLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
