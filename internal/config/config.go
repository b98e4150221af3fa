package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	// TimeoutMS 为 0 表示不设超时，请求一直运行到完成或网络失败
	// TimeoutMS of 0 means no timeout: a request runs to completion or network failure.
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms"`
}

type CredentialsConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
}

type DisplayConfig struct {
	Visualize   bool   `json:"visualize" yaml:"visualize"`
	GraphPolicy string `json:"graph_policy" yaml:"graph_policy"`
	Locale      string `json:"locale" yaml:"locale"`
	Markdown    bool   `json:"markdown" yaml:"markdown"`
}

type StorageConfig struct {
	BaseDir   string `json:"base_dir" yaml:"base_dir"`
	ExportDir string `json:"export_dir" yaml:"export_dir"`
	Journal   bool   `json:"journal" yaml:"journal"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool   `json:"insecure" yaml:"insecure"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Credentials CredentialsConfig `json:"credentials" yaml:"credentials"`
	Display     DisplayConfig     `json:"display" yaml:"display"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Telemetry   TelemetryConfig   `json:"telemetry" yaml:"telemetry"`
	Log         LogConfig         `json:"log" yaml:"log"`
}

type fileDisplayConfig struct {
	Visualize   *bool   `json:"visualize" yaml:"visualize"`
	GraphPolicy *string `json:"graph_policy" yaml:"graph_policy"`
	Locale      *string `json:"locale" yaml:"locale"`
	Markdown    *bool   `json:"markdown" yaml:"markdown"`
}

type fileStorageConfig struct {
	BaseDir   *string `json:"base_dir" yaml:"base_dir"`
	ExportDir *string `json:"export_dir" yaml:"export_dir"`
	Journal   *bool   `json:"journal" yaml:"journal"`
}

type fileTelemetryConfig struct {
	OTLPEndpoint *string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     *bool   `json:"insecure" yaml:"insecure"`
}

type fileConfig struct {
	Server      *ServerConfig        `json:"server" yaml:"server"`
	Credentials *CredentialsConfig   `json:"credentials" yaml:"credentials"`
	Display     *fileDisplayConfig   `json:"display" yaml:"display"`
	Storage     *fileStorageConfig   `json:"storage" yaml:"storage"`
	Telemetry   *fileTelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Log         *LogConfig           `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: DefaultServerBaseURL,
		},
		Display: DisplayConfig{
			Visualize:   true,
			GraphPolicy: DefaultGraphPolicy,
			Markdown:    true,
		},
		Storage: StorageConfig{
			BaseDir:   DefaultStorageDir,
			ExportDir: ".",
			Journal:   true,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load 按 默认值 → 全局配置 → 项目配置 → 环境变量 的顺序合并配置
// Load merges defaults, then global config, then project config, then environment.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("KGCHAT_CONFIG_PATH")); envPath != "" && resolvedPath == "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	} else if _, err := os.Stat(resolvedPath); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", resolvedPath, err)
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(home, ".kgchat")
	return []string{
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.yaml"),
	}
}

func findProjectConfigPath() string {
	candidates := []string{
		"kgchat.config.json",
		"kgchat.config.jsonc",
		"kgchat.config.yaml",
		"kgchat.config.yml",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	var fileCfg fileConfig
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return fmt.Errorf("parse config %q: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(stripJSONComments(data), &fileCfg); err != nil {
			return fmt.Errorf("parse config %q: %w", resolved, err)
		}
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Server != nil {
		if strings.TrimSpace(fc.Server.BaseURL) != "" {
			cfg.Server.BaseURL = fc.Server.BaseURL
		}
		if fc.Server.TimeoutMS > 0 {
			cfg.Server.TimeoutMS = fc.Server.TimeoutMS
		}
	}
	if fc.Credentials != nil {
		if strings.TrimSpace(fc.Credentials.APIKey) != "" {
			cfg.Credentials.APIKey = fc.Credentials.APIKey
		}
		if strings.TrimSpace(fc.Credentials.APISecret) != "" {
			cfg.Credentials.APISecret = fc.Credentials.APISecret
		}
	}
	if fc.Display != nil {
		if fc.Display.Visualize != nil {
			cfg.Display.Visualize = *fc.Display.Visualize
		}
		if fc.Display.GraphPolicy != nil {
			cfg.Display.GraphPolicy = *fc.Display.GraphPolicy
		}
		if fc.Display.Locale != nil {
			cfg.Display.Locale = *fc.Display.Locale
		}
		if fc.Display.Markdown != nil {
			cfg.Display.Markdown = *fc.Display.Markdown
		}
	}
	if fc.Storage != nil {
		if fc.Storage.BaseDir != nil && strings.TrimSpace(*fc.Storage.BaseDir) != "" {
			cfg.Storage.BaseDir = *fc.Storage.BaseDir
		}
		if fc.Storage.ExportDir != nil && strings.TrimSpace(*fc.Storage.ExportDir) != "" {
			cfg.Storage.ExportDir = *fc.Storage.ExportDir
		}
		if fc.Storage.Journal != nil {
			cfg.Storage.Journal = *fc.Storage.Journal
		}
	}
	if fc.Telemetry != nil {
		if fc.Telemetry.OTLPEndpoint != nil {
			cfg.Telemetry.OTLPEndpoint = *fc.Telemetry.OTLPEndpoint
		}
		if fc.Telemetry.Insecure != nil {
			cfg.Telemetry.Insecure = *fc.Telemetry.Insecure
		}
	}
	if fc.Log != nil && strings.TrimSpace(fc.Log.Level) != "" {
		cfg.Log.Level = fc.Log.Level
	}
}

func normalize(cfg *Config) error {
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = DefaultServerBaseURL
	}
	u, err := url.Parse(cfg.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server.base_url: %q", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutMS < 0 {
		return fmt.Errorf("invalid server.timeout_ms: %d", cfg.Server.TimeoutMS)
	}

	cfg.Credentials.APIKey = strings.TrimSpace(cfg.Credentials.APIKey)
	cfg.Credentials.APISecret = strings.TrimSpace(cfg.Credentials.APISecret)

	policy := strings.ToLower(strings.TrimSpace(cfg.Display.GraphPolicy))
	switch policy {
	case "":
		policy = DefaultGraphPolicy
	case "latest", "cumulative":
	default:
		return fmt.Errorf("invalid display.graph_policy: %q (want latest or cumulative)", cfg.Display.GraphPolicy)
	}
	cfg.Display.GraphPolicy = policy
	cfg.Display.Locale = strings.TrimSpace(cfg.Display.Locale)

	baseDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return fmt.Errorf("expand storage.base_dir: %w", err)
	}
	if baseDir == "" {
		baseDir, err = expandPath(DefaultStorageDir)
		if err != nil {
			return fmt.Errorf("expand storage.base_dir: %w", err)
		}
	}
	cfg.Storage.BaseDir = baseDir

	exportDir, err := expandPath(cfg.Storage.ExportDir)
	if err != nil {
		return fmt.Errorf("expand storage.export_dir: %w", err)
	}
	if exportDir == "" {
		exportDir, _ = filepath.Abs(".")
	}
	cfg.Storage.ExportDir = exportDir

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "":
		cfg.Log.Level = DefaultLogLevel
	case "error", "warn", "warning", "info", "debug":
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	default:
		return fmt.Errorf("invalid log.level: %q", cfg.Log.Level)
	}
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(cfg.Telemetry.OTLPEndpoint)
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("KGCHAT_SERVER_URL")); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("KGCHAT_API_KEY")); v != "" {
		cfg.Credentials.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("KGCHAT_API_SECRET")); v != "" {
		cfg.Credentials.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("KGCHAT_LANG")); v != "" {
		cfg.Display.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv("KGCHAT_GRAPH_POLICY")); v != "" {
		cfg.Display.GraphPolicy = v
	}
	if v := strings.TrimSpace(os.Getenv("KGCHAT_HOME")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("KGCHAT_TIMEOUT_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid KGCHAT_TIMEOUT_MS: %q", v)
		}
		cfg.Server.TimeoutMS = n
	}

	return cfg, normalize(&cfg)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
