package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTargetLang     = "th"
	DefaultOCRLang        = "auto"
	DefaultTranslateURL   = "https://translate.googleapis.com/translate_a/single"
	DefaultDictionaryURL  = "https://dict.longdo.com/mobile.php"
	DefaultHotkey         = "Ctrl+Alt+T"
	DefaultResidentPort   = 49560
	ConfigPathEnvVar      = "FLOATING_DICTIONARY"
	TessdataPrefixEnvVar  = "TESSDATA_PREFIX"
	appDataDirName        = "floating-dictionary-linux"
	defaultLogLevel       = "info"
	defaultHTTPTimeoutSec = 10
)

type LoadOptions struct {
	TargetOverride  string
	OCRLangOverride string
}

type Config struct {
	TargetLang        string
	OCRLang           string
	TessdataDir       string
	TranslateURL      string
	DictionaryURL     string
	HTTPTimeout       time.Duration
	RetryDelay        time.Duration
	DictionaryWait    time.Duration
	OCRWorkers        int
	OCRDeadline       time.Duration
	PresentCeiling    time.Duration
	ErrorDisplay      time.Duration
	Hotkey            string
	CopyTranslation   bool
	EnableFileLogging bool
	LogLevel          string
	ResidentPort      int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Configuration sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, FLOATING_DICTIONARY env var as a path to a config file
	// Process environment always wins over the file, CLI overrides win over both.
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		TargetLang:        getEnvWithDefault("TARGET_LANG", DefaultTargetLang),
		OCRLang:           getEnvWithDefault("OCR_LANG", DefaultOCRLang),
		TessdataDir:       resolveTessdataDir(),
		TranslateURL:      getEnvWithDefault("TRANSLATE_URL", DefaultTranslateURL),
		DictionaryURL:     getEnvWithDefault("DICTIONARY_URL", DefaultDictionaryURL),
		HTTPTimeout:       time.Duration(getPositiveInt("HTTP_TIMEOUT_SEC", defaultHTTPTimeoutSec)) * time.Second,
		RetryDelay:        time.Duration(getPositiveInt("TRANSLATE_RETRY_DELAY_MS", 500)) * time.Millisecond,
		DictionaryWait:    time.Duration(getPositiveInt("DICTIONARY_WAIT_MS", 1500)) * time.Millisecond,
		OCRWorkers:        getPositiveInt("OCR_WORKERS", 0),
		OCRDeadline:       time.Duration(getPositiveInt("OCR_DEADLINE_SEC", 30)) * time.Second,
		PresentCeiling:    time.Duration(getPositiveInt("PRESENT_CEILING_SEC", 60)) * time.Second,
		ErrorDisplay:      time.Duration(getPositiveInt("ERROR_DISPLAY_SEC", 3)) * time.Second,
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		CopyTranslation:   getBool("COPY_TRANSLATION"),
		EnableFileLogging: getBool("ENABLE_FILE_LOGGING"),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", defaultLogLevel)),
		ResidentPort:      resolvePort(),
	}

	if v := strings.TrimSpace(opts.TargetOverride); v != "" {
		cfg.TargetLang = v
	}
	if v := strings.TrimSpace(opts.OCRLangOverride); v != "" {
		cfg.OCRLang = v
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

// resolveTessdataDir prefers TESSDATA_PREFIX, then the per-user data directory
// the model files are unpacked into by the installer.
func resolveTessdataDir() string {
	if v := strings.TrimSpace(os.Getenv(TessdataPrefixEnvVar)); v != "" {
		return v
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appDataDirName, "tessdata")
}

func resolvePort() int {
	port := DefaultResidentPort
	if v := os.Getenv("SINGLEINSTANCE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}
	if port < 1024 || port > 65535 {
		port = DefaultResidentPort
	}
	return port
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getBool(key string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key))) == "true"
}
