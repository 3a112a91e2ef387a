// Package config loads the §6 configuration document: two-pass
// thresholds, retry knobs, stage-5/6 concurrency, workspace/prompt paths,
// and adapter credentials, via viper exactly the way the teacher's
// internal/config/settings.go and cmd/root.go's initConfig do.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Settings is the §6 configuration document.
type Settings struct {
	TwoPass struct {
		TargetCount          int     `mapstructure:"target_count"`
		MinCount             int     `mapstructure:"min_count"`
		MaxCount             int     `mapstructure:"max_count"`
		QualityThreshold     float64 `mapstructure:"quality_threshold"`
		FallbackThreshold    float64 `mapstructure:"fallback_threshold"`
		AutoIncludeThreshold float64 `mapstructure:"auto_include_threshold"`
		MaxCategoryFraction  float64 `mapstructure:"max_category_fraction"`
		SimilarityThreshold  float64 `mapstructure:"similarity_threshold"`
	} `mapstructure:"two_pass"`

	Retry struct {
		MaxAttempts           int     `mapstructure:"max_attempts"`
		BaseDelaySeconds      float64 `mapstructure:"base_delay_seconds"`
		PerCallTimeoutSeconds float64 `mapstructure:"per_call_timeout_seconds"`
	} `mapstructure:"retry"`

	Concurrency struct {
		TTSWorkers  int `mapstructure:"tts_workers"`
		ClipWorkers int `mapstructure:"clip_workers"`
	} `mapstructure:"concurrency"`

	Paths struct {
		ContentRoot       string `mapstructure:"content_root"`
		PromptsDir        string `mapstructure:"prompts_dir"`
		AnalysisRulesPath string `mapstructure:"analysis_rules_path"`
	} `mapstructure:"paths"`

	Adapters struct {
		Downloader struct {
			Binary string `mapstructure:"binary"`
		} `mapstructure:"downloader"`
		LLM struct {
			Provider string `mapstructure:"provider"`
			Model    string `mapstructure:"model"`
			APIKey   string `mapstructure:"api_key"`
		} `mapstructure:"llm"`
		TTS struct {
			APIKey  string `mapstructure:"api_key"`
			VoiceID string `mapstructure:"voice_id"`
		} `mapstructure:"tts"`
		Diarizer struct {
			APIToken string `mapstructure:"api_token"`
			Owner    string `mapstructure:"owner"`
			Name     string `mapstructure:"name"`
		} `mapstructure:"diarizer"`
	} `mapstructure:"adapters"`
}

func getConfigPath() (string, error) {
	configDir := filepath.Join(xdg.ConfigHome, "factreel")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// InitConfig wires viper's defaults and search path, then reads whatever
// config file it finds. customPath (--config) takes precedence over the
// XDG default, which in turn takes precedence over the legacy
// ~/.factreel.yaml the way the teacher's initConfig falls back to
// ~/.langkit.yaml.
func InitConfig(customPath string) error {
	setDefaults()

	if customPath != "" {
		viper.SetConfigFile(customPath)
	} else if configPath, err := getConfigPath(); err == nil && fileExists(configPath) {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
	} else {
		home, herr := homedir.Dir()
		if herr == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".factreel")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setDefaults() {
	viper.SetDefault("two_pass.target_count", 10)
	viper.SetDefault("two_pass.min_count", 8)
	viper.SetDefault("two_pass.max_count", 12)
	viper.SetDefault("two_pass.quality_threshold", 6.5)
	viper.SetDefault("two_pass.fallback_threshold", 6.0)
	viper.SetDefault("two_pass.auto_include_threshold", 8.5)
	viper.SetDefault("two_pass.max_category_fraction", 0.5)
	viper.SetDefault("two_pass.similarity_threshold", 0.7)

	viper.SetDefault("retry.max_attempts", 4)
	viper.SetDefault("retry.base_delay_seconds", 1.0)
	viper.SetDefault("retry.per_call_timeout_seconds", 120.0)

	viper.SetDefault("concurrency.tts_workers", 2)
	viper.SetDefault("concurrency.clip_workers", 2)

	viper.SetDefault("paths.content_root", "")
	viper.SetDefault("paths.prompts_dir", "")
	viper.SetDefault("paths.analysis_rules_path", "")

	viper.SetDefault("adapters.downloader.binary", "yt-dlp")
	viper.SetDefault("adapters.llm.provider", "")
	viper.SetDefault("adapters.llm.model", "")
	viper.SetDefault("adapters.tts.voice_id", "")
	viper.SetDefault("adapters.diarizer.owner", "victor-upmeet")
	viper.SetDefault("adapters.diarizer.name", "whisperx")
}

// LoadSettings unmarshals the current viper state into a Settings value.
func LoadSettings() (Settings, error) {
	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
