package config

const (
	defaultConfigPath       = "~/.config/screenrec/config.toml"
	defaultStateDir         = "~/.local/share/screenrec"
	defaultLogDir           = "~/.local/share/screenrec/logs"
	defaultSocketName       = "screenrec.sock"
	defaultFFmpeg           = "ffmpeg"
	defaultXRandR           = "xrandr"
	defaultXDPYInfo         = "xdpyinfo"
	defaultDisplay          = ":0.0"
	defaultInputFormat      = "x11grab"
	defaultPreset           = "fast"
	defaultAudioInputFormat = "pulse"
	defaultAudioDevice      = "default"
	defaultAudioCodec       = "aac"
	defaultContainer        = "mkv"
	defaultRemuxContainer   = "mp4"
	defaultStopTimeout      = 15
	defaultAPIBind          = "127.0.0.1:7488"
	defaultAppName          = "Screen Recorder"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:   defaultFFmpeg,
			XRandR:   defaultXRandR,
			XDPYInfo: defaultXDPYInfo,
		},
		Capture: Capture{
			InputFormat:      defaultInputFormat,
			Preset:           defaultPreset,
			AudioInputFormat: defaultAudioInputFormat,
			AudioDevice:      defaultAudioDevice,
			AudioCodec:       defaultAudioCodec,
			Container:        defaultContainer,
			StopTimeout:      defaultStopTimeout,
		},
		Remux: Remux{
			TargetContainer: defaultRemuxContainer,
		},
		API: API{
			Enabled: true,
			Bind:    defaultAPIBind,
		},
		Notifications: Notifications{
			Enabled: true,
			AppName: defaultAppName,
		},
		Hotplug: Hotplug{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
