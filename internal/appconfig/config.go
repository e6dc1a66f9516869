package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/glimmer/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string          `mapstructure:"state_dir" yaml:"state_dir"`
	Session       SessionConfig   `mapstructure:"session" yaml:"session"`
	Peer          PeerConfig      `mapstructure:"peer" yaml:"peer"`
	Recording     RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Images        ImagesConfig    `mapstructure:"images" yaml:"images"`
	Files         FilesConfig     `mapstructure:"files" yaml:"files"`
	Autosave      AutosaveConfig  `mapstructure:"autosave" yaml:"autosave"`
	SSH           SSHConfig       `mapstructure:"ssh" yaml:"ssh"`
	HTTP          HTTPConfig      `mapstructure:"http" yaml:"http"`
	Terminal      TerminalConfig  `mapstructure:"terminal" yaml:"terminal"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// SessionConfig controls the display session.
type SessionConfig struct {
	MaxBufferLength  int           `mapstructure:"max_buffer_length" yaml:"max_buffer_length"`
	HistoryMax       int           `mapstructure:"history_max" yaml:"history_max"`
	DisablePaging    bool          `mapstructure:"disable_paging" yaml:"disable_paging"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	ResizeDelay      time.Duration `mapstructure:"resize_delay" yaml:"resize_delay"`
	DeferDelay       time.Duration `mapstructure:"defer_delay" yaml:"defer_delay"`
	FontLoadDelay    time.Duration `mapstructure:"font_load_delay" yaml:"font_load_delay"`
	MorePromptMargin float64       `mapstructure:"more_prompt_margin" yaml:"more_prompt_margin"`
	Support          []string      `mapstructure:"support" yaml:"support"`
}

// PeerConfig describes the interpreter process that produces updates.
type PeerConfig struct {
	Command string            `mapstructure:"command" yaml:"command"`
	Args    []string          `mapstructure:"args" yaml:"args"`
	Env     map[string]string `mapstructure:"env" yaml:"env"`
	Dir     string            `mapstructure:"dir" yaml:"dir"`
}

// RecordingConfig controls transcript recording. An empty URL disables it.
type RecordingConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Format string `mapstructure:"format" yaml:"format"`
	Label  string `mapstructure:"label" yaml:"label"`
}

// ImagesConfig controls how graphics images are fetched.
type ImagesConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// FilesConfig controls where file references resolve.
type FilesConfig struct {
	SaveDir string `mapstructure:"save_dir" yaml:"save_dir"`
}

// AutosaveConfig controls display state autosave.
type AutosaveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

// SSHConfig configures the SSH story server.
type SSHConfig struct {
	Addr               string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath        string `mapstructure:"host_key_path" yaml:"host_key_path"`
	HostKeyType        string `mapstructure:"host_key_type" yaml:"host_key_type"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path" yaml:"authorized_keys_path"`
	// Story names the autosave slot of SSH players.
	Story string `mapstructure:"story" yaml:"story"`
}

// HTTPConfig configures the recording receiver.
type HTTPConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	RecordDir string `mapstructure:"record_dir" yaml:"record_dir"`
	BasePath  string `mapstructure:"base_path" yaml:"base_path"`
}

// TerminalConfig holds the color theme and the screen size used when the
// terminal cannot be queried.
type TerminalConfig struct {
	Width  int    `mapstructure:"width" yaml:"width"`
	Height int    `mapstructure:"height" yaml:"height"`
	Theme  string `mapstructure:"theme" yaml:"theme"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	base := filepath.Join(home, ".glimmer")
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(base, "state"),
		Session: SessionConfig{
			MaxBufferLength:  schema.DefaultMaxBufferLength,
			HistoryMax:       schema.DefaultHistoryMax,
			DisablePaging:    false,
			RetryDelay:       schema.DefaultRetryDelay,
			ResizeDelay:      schema.DefaultResizeDelay,
			DeferDelay:       schema.DefaultDeferDelay,
			FontLoadDelay:    0,
			MorePromptMargin: schema.DefaultMorePromptMargin,
			Support:          append([]string(nil), schema.DefaultSupport...),
		},
		Peer: PeerConfig{
			Command: "glulxe",
			Args:    []string{},
			Env:     map[string]string{},
			Dir:     "",
		},
		Recording: RecordingConfig{
			URL:    "",
			Format: "glkote",
			Label:  "",
		},
		Images: ImagesConfig{
			BaseURL: "",
			Timeout: 10 * time.Second,
		},
		Files: FilesConfig{
			SaveDir: filepath.Join(base, "saves"),
		},
		Autosave: AutosaveConfig{
			Enabled: true,
			Dir:     filepath.Join(base, "state", "autosave"),
		},
		SSH: SSHConfig{
			Addr:               ":27522",
			HostKeyPath:        filepath.Join(base, "ssh_host_key"),
			HostKeyType:        "ed25519",
			AuthorizedKeysPath: "",
			Story:              "story",
		},
		HTTP: HTTPConfig{
			Addr:      ":27580",
			RecordDir: filepath.Join(base, "state", "recordings"),
			BasePath:  "",
		},
		Terminal: TerminalConfig{
			Width:  80,
			Height: 24,
			Theme:  "gruvbox",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".glimmer", "config.yaml"), nil
}

// SessionConfig converts the session section into core session settings.
func (c Config) SessionConfig() schema.SessionConfig {
	return schema.SessionConfig{
		MaxBufferLength:  c.Session.MaxBufferLength,
		HistoryMax:       c.Session.HistoryMax,
		DisablePaging:    c.Session.DisablePaging,
		RetryDelay:       c.Session.RetryDelay,
		ResizeDelay:      c.Session.ResizeDelay,
		DeferDelay:       c.Session.DeferDelay,
		FontLoadDelay:    c.Session.FontLoadDelay,
		MorePromptMargin: c.Session.MorePromptMargin,
		Support:          append([]string(nil), c.Session.Support...),
	}
}
