package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type JWTConfig struct {
	SecretKey string `mapstructure:"secretKey"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type EnrichmentConfig struct {
	Provider    string        `mapstructure:"provider"` // "openai" or "gemini"
	APIKey      string        `mapstructure:"apiKey"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"baseURL"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Configured reports whether an upstream AI credential is present.
func (e EnrichmentConfig) Configured() bool {
	return strings.TrimSpace(e.APIKey) != ""
}

type PlacesConfig struct {
	APIKey       string        `mapstructure:"apiKey"`
	BaseURL      string        `mapstructure:"baseURL"`
	LanguageCode string        `mapstructure:"languageCode"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cacheTTL"`
}

// Configured reports whether a places-lookup credential is present.
func (p PlacesConfig) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
			// ServiceDSN is a privileged connection used when profile reads fail
			// under the application role.
			ServiceDSN string `mapstructure:"serviceDSN"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	Auth struct {
		JWT JWTConfig `mapstructure:"jwt"`
	} `mapstructure:"auth"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Places     PlacesConfig     `mapstructure:"places"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.AddConfigPath("/usr/local/bin")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	bindEnv(v)

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// bindEnv lets secrets come from the environment (or .env) instead of config.yml.
func bindEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("auth.jwt.secretKey", "JWT_SECRET_KEY")
	_ = v.BindEnv("repositories.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("repositories.postgres.serviceDSN", "SERVICE_DATABASE_URL")
	_ = v.BindEnv("places.apiKey", "GOOGLE_PLACES_API_KEY")

	switch strings.ToLower(v.GetString("enrichment.provider")) {
	case "gemini":
		_ = v.BindEnv("enrichment.apiKey", "GOOGLE_GEMINI_API_KEY")
	default:
		_ = v.BindEnv("enrichment.apiKey", "OPENAI_API_KEY")
	}
}
