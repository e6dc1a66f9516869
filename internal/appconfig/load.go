package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Recording formats understood by the recorder.
const (
	RecordingFormatGlkote = "glkote"
	RecordingFormatSimple = "simple"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("session.max_buffer_length", cfg.Session.MaxBufferLength)
	v.SetDefault("session.history_max", cfg.Session.HistoryMax)
	v.SetDefault("session.disable_paging", cfg.Session.DisablePaging)
	v.SetDefault("session.retry_delay", cfg.Session.RetryDelay)
	v.SetDefault("session.resize_delay", cfg.Session.ResizeDelay)
	v.SetDefault("session.defer_delay", cfg.Session.DeferDelay)
	v.SetDefault("session.font_load_delay", cfg.Session.FontLoadDelay)
	v.SetDefault("session.more_prompt_margin", cfg.Session.MorePromptMargin)
	v.SetDefault("session.support", cfg.Session.Support)
	v.SetDefault("peer.command", cfg.Peer.Command)
	v.SetDefault("peer.args", cfg.Peer.Args)
	v.SetDefault("peer.env", cfg.Peer.Env)
	v.SetDefault("peer.dir", cfg.Peer.Dir)
	v.SetDefault("recording.url", cfg.Recording.URL)
	v.SetDefault("recording.format", cfg.Recording.Format)
	v.SetDefault("recording.label", cfg.Recording.Label)
	v.SetDefault("images.base_url", cfg.Images.BaseURL)
	v.SetDefault("images.timeout", cfg.Images.Timeout)
	v.SetDefault("files.save_dir", cfg.Files.SaveDir)
	v.SetDefault("autosave.enabled", cfg.Autosave.Enabled)
	v.SetDefault("autosave.dir", cfg.Autosave.Dir)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)
	v.SetDefault("ssh.host_key_type", cfg.SSH.HostKeyType)
	v.SetDefault("ssh.authorized_keys_path", cfg.SSH.AuthorizedKeysPath)
	v.SetDefault("ssh.story", cfg.SSH.Story)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.record_dir", cfg.HTTP.RecordDir)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("terminal.width", cfg.Terminal.Width)
	v.SetDefault("terminal.height", cfg.Terminal.Height)
	v.SetDefault("terminal.theme", cfg.Terminal.Theme)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateSessionConfig(cfg.Session); err != nil {
		return Config{}, err
	}
	if err := validateRecordingConfig(cfg.Recording); err != nil {
		return Config{}, err
	}
	if err := validateSSHConfig(cfg.SSH); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateSessionConfig(cfg SessionConfig) error {
	if cfg.MaxBufferLength < 0 {
		return fmt.Errorf("session.max_buffer_length must not be negative")
	}
	if cfg.HistoryMax < 0 {
		return fmt.Errorf("session.history_max must not be negative")
	}
	return nil
}

func validateSSHConfig(cfg SSHConfig) error {
	switch strings.ToLower(cfg.HostKeyType) {
	case "ed25519", "ecdsa", "rsa":
		return nil
	default:
		return fmt.Errorf("unsupported ssh.host_key_type %q", cfg.HostKeyType)
	}
}

func validateRecordingConfig(cfg RecordingConfig) error {
	switch cfg.Format {
	case RecordingFormatGlkote, RecordingFormatSimple:
	default:
		return fmt.Errorf("unsupported recording.format %q", cfg.Format)
	}
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("recording.url must include scheme and host (e.g. https://example.com/record)")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Peer.Command = expandEnv(cfg.Peer.Command)
	cfg.Peer.Dir = expandEnv(cfg.Peer.Dir)
	for i, arg := range cfg.Peer.Args {
		cfg.Peer.Args[i] = expandEnv(arg)
	}
	cfg.Files.SaveDir = expandEnv(cfg.Files.SaveDir)
	cfg.Autosave.Dir = expandEnv(cfg.Autosave.Dir)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
	cfg.SSH.AuthorizedKeysPath = expandEnv(cfg.SSH.AuthorizedKeysPath)
	cfg.HTTP.RecordDir = expandEnv(cfg.HTTP.RecordDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
