package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	APIURL     string
	APIKey     string
	QuoteAsset string

	RefreshInterval time.Duration
	RESTTimeout     time.Duration

	// Staleness rendering: rows older than FreshWindow start to fade,
	// in NVisualDegradations discrete steps.
	FreshWindow         time.Duration
	NVisualDegradations int

	// Tail slider bounds for the orders view.
	SliderMin     int
	SliderMax     int
	SliderStep    int
	SliderDefault int

	AppTitle string
	LogoFile string
	UIURL    string
	LocalTZ  string

	ListenPort int
	DataPath   string
}

type ConfigFile struct {
	API struct {
		URL        string `yaml:"url"`
		Key        string `yaml:"key"`
		QuoteAsset string `yaml:"quoteAsset"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"api"`

	Refresh struct {
		Interval            string `yaml:"interval"`
		FreshWindow         string `yaml:"freshWindow"`
		NVisualDegradations int    `yaml:"nVisualDegradations"`
	} `yaml:"refresh"`

	Slider struct {
		Min     int `yaml:"min"`
		Max     int `yaml:"max"`
		Step    int `yaml:"step"`
		Default int `yaml:"default"`
	} `yaml:"slider"`

	UI struct {
		AppTitle   string `yaml:"appTitle"`
		LogoFile   string `yaml:"logoFile"`
		URL        string `yaml:"url"`
		LocalTZ    string `yaml:"localTZ"`
		ListenPort int    `yaml:"listenPort"`
	} `yaml:"ui"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	refresh, err := time.ParseDuration(config.Refresh.Interval)
	if err != nil {
		refresh = 60 * time.Second
	}

	freshWindow, err := time.ParseDuration(config.Refresh.FreshWindow)
	if err != nil {
		freshWindow = 300 * time.Second
	}

	restTimeout, err := time.ParseDuration(config.API.Timeout)
	if err != nil {
		restTimeout = 3 * time.Second
	}

	// Env vars override the file, same as for the string and int fields.
	refresh = getSecondsOrDefault("REFRESH_SECONDS", refresh)
	freshWindow = getSecondsOrDefault("FRESH_WINDOW_S", freshWindow)
	restTimeout = getDurationOrDefault("REST_TIMEOUT", restTimeout)

	settings := Settings{
		APIURL:              getEnvOrDefault("API_URL", config.API.URL),
		APIKey:              getEnvOrDefault("API_KEY", config.API.Key),
		QuoteAsset:          getEnvOrDefault("QUOTE_ASSET", config.API.QuoteAsset),
		RefreshInterval:     refresh,
		RESTTimeout:         restTimeout,
		FreshWindow:         freshWindow,
		NVisualDegradations: getIntFromEnvOrConfig("N_VISUAL_DEGRADATIONS", config.Refresh.NVisualDegradations),
		SliderMin:           getIntFromEnvOrConfig("SLIDER_MIN", config.Slider.Min),
		SliderMax:           getIntFromEnvOrConfig("SLIDER_MAX", config.Slider.Max),
		SliderStep:          getIntFromEnvOrConfig("SLIDER_STEP", config.Slider.Step),
		SliderDefault:       getIntFromEnvOrConfig("SLIDER_DEFAULT", config.Slider.Default),
		AppTitle:            getEnvOrDefault("APP_TITLE", config.UI.AppTitle),
		LogoFile:            getEnvOrDefault("LOGO_FILE", config.UI.LogoFile),
		UIURL:               getEnvOrDefault("UI_URL", config.UI.URL),
		LocalTZ:             getEnvOrDefault("LOCAL_TZ", config.UI.LocalTZ),
		ListenPort:          getIntFromEnvOrConfig("LISTEN_PORT", config.UI.ListenPort),
		DataPath:            getEnvOrDefault("DATA_PATH", config.System.DataPath),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		APIURL:              getEnvOrDefault("API_URL", "http://localhost:8000"),
		APIKey:              getEnvOrDefault("API_KEY", "dev-key"),
		QuoteAsset:          getEnvOrDefault("QUOTE_ASSET", "USDT"),
		RefreshInterval:     getSecondsOrDefault("REFRESH_SECONDS", 60*time.Second),
		RESTTimeout:         getDurationOrDefault("REST_TIMEOUT", 3*time.Second),
		FreshWindow:         getSecondsOrDefault("FRESH_WINDOW_S", 300*time.Second),
		NVisualDegradations: getIntOrDefault("N_VISUAL_DEGRADATIONS", 12),
		SliderMin:           getIntOrDefault("SLIDER_MIN", 10),
		SliderMax:           getIntOrDefault("SLIDER_MAX", 1000),
		SliderStep:          getIntOrDefault("SLIDER_STEP", 10),
		SliderDefault:       getIntOrDefault("SLIDER_DEFAULT", 100),
		AppTitle:            os.Getenv("APP_TITLE"), // optional
		LogoFile:            os.Getenv("LOGO_FILE"), // optional
		UIURL:               getEnvOrDefault("UI_URL", "http://localhost:8000"),
		LocalTZ:             getEnvOrDefault("LOCAL_TZ", "UTC"),
		ListenPort:          getIntOrDefault("LISTEN_PORT", 8501),
		DataPath:            os.Getenv("DATA_PATH"), // optional
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.APIURL == "" {
		s.APIURL = "http://localhost:8000"
	}
	if s.APIKey == "" {
		s.APIKey = "dev-key"
	}
	if s.QuoteAsset == "" {
		s.QuoteAsset = "USDT"
	}
	if s.NVisualDegradations == 0 {
		s.NVisualDegradations = 12
	}
	if s.SliderMin == 0 {
		s.SliderMin = 10
	}
	if s.SliderMax == 0 {
		s.SliderMax = 1000
	}
	if s.SliderStep == 0 {
		s.SliderStep = 10
	}
	if s.SliderDefault == 0 {
		s.SliderDefault = 100
	}
	if s.UIURL == "" {
		s.UIURL = "http://localhost:8000"
	}
	if s.LocalTZ == "" {
		s.LocalTZ = "UTC"
	}
	if s.ListenPort == 0 {
		s.ListenPort = 8501
	}
}

// ClampTail bounds a requested order tail to the configured slider range.
// Out-of-range values are clamped, never rejected.
func (s *Settings) ClampTail(n int) int {
	if n < s.SliderMin {
		return s.SliderMin
	}
	if n > s.SliderMax {
		return s.SliderMax
	}
	return n
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getSecondsOrDefault reads an integer number of seconds from the
// environment, e.g. REFRESH_SECONDS=30.
func getSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.APIURL == "" {
		return fmt.Errorf("API URL cannot be empty")
	}
	if settings.APIKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}
	if settings.QuoteAsset == "" {
		return fmt.Errorf("quote asset cannot be empty")
	}

	if settings.RefreshInterval < time.Second || settings.RefreshInterval > time.Hour {
		return fmt.Errorf("refresh interval must be between 1s and 1h, got %v", settings.RefreshInterval)
	}
	if settings.RESTTimeout < 100*time.Millisecond || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 100ms and 1m, got %v", settings.RESTTimeout)
	}
	if settings.FreshWindow < time.Second {
		return fmt.Errorf("fresh window must be at least 1s, got %v", settings.FreshWindow)
	}

	if settings.NVisualDegradations < 2 || settings.NVisualDegradations > 256 {
		return fmt.Errorf("visual degradation levels must be between 2 and 256, got %d", settings.NVisualDegradations)
	}

	if settings.SliderMin <= 0 {
		return fmt.Errorf("slider minimum must be positive, got %d", settings.SliderMin)
	}
	if settings.SliderMax < settings.SliderMin {
		return fmt.Errorf("slider maximum %d is below minimum %d", settings.SliderMax, settings.SliderMin)
	}
	if settings.SliderStep <= 0 {
		return fmt.Errorf("slider step must be positive, got %d", settings.SliderStep)
	}
	if settings.SliderDefault < settings.SliderMin || settings.SliderDefault > settings.SliderMax {
		return fmt.Errorf("slider default %d outside [%d, %d]", settings.SliderDefault, settings.SliderMin, settings.SliderMax)
	}

	if settings.ListenPort < 1024 || settings.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1024 and 65535, got %d", settings.ListenPort)
	}

	// A configured logo that cannot be read is a startup error, not a
	// silently empty sidebar.
	if settings.LogoFile != "" {
		if _, err := os.Stat(settings.LogoFile); err != nil {
			return fmt.Errorf("logo file %s is not readable: %w", settings.LogoFile, err)
		}
	}

	if _, err := time.LoadLocation(settings.LocalTZ); err != nil {
		return fmt.Errorf("invalid LOCAL_TZ %q: %w", settings.LocalTZ, err)
	}

	return nil
}
