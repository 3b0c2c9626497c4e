package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type AuthConfig struct {
	AccessSecret string
}

type TypstConfig struct {
	Binary       string
	TemplatesDir string
	OutputDir    string
	CacheDir     string
	Timeout      time.Duration
}

type PaperlessConfig struct {
	Enabled   bool
	URL       string
	APIToken  string
	VerifySSL bool
}

type OllamaConfig struct {
	Enabled bool
	URL     string
	Model   string
	Timeout time.Duration
}

// Sender is an issuing identity printed on documents. The business sender
// carries bank and tax details; the private one leaves them empty.
type Sender struct {
	Name          string
	Street        string
	ZipCode       string
	City          string
	Country       string
	Phone         string
	Email         string
	Website       string
	IBAN          string
	BIC           string
	BankName      string
	VATID         string
	TaxNumber     string
	SmallBusiness bool
}

type Config struct {
	Environment   string
	HTTP          HTTPConfig
	DB            DBConfig
	Auth          AuthConfig
	Typst         TypstConfig
	Paperless     PaperlessConfig
	Ollama        OllamaConfig
	Sender        Sender
	SenderPrivate Sender
}

// SenderFor selects the issuing identity for a letter type. Invoices and
// offers always use the business sender.
func (c *Config) SenderFor(letterType string) Sender {
	if letterType == "private" {
		return c.SenderPrivate
	}
	return c.Sender
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Typst: TypstConfig{
			Binary:       v.GetString("TYPST_BINARY"),
			TemplatesDir: v.GetString("TYPST_TEMPLATES_DIR"),
			OutputDir:    v.GetString("TYPST_OUTPUT_DIR"),
			CacheDir:     v.GetString("TYPST_CACHE_DIR"),
			Timeout:      v.GetDuration("TYPST_TIMEOUT"),
		},
		Paperless: PaperlessConfig{
			Enabled:   v.GetBool("PAPERLESS_ENABLED"),
			URL:       v.GetString("PAPERLESS_URL"),
			APIToken:  v.GetString("PAPERLESS_API_TOKEN"),
			VerifySSL: v.GetBool("PAPERLESS_VERIFY_SSL"),
		},
		Ollama: OllamaConfig{
			Enabled: v.GetBool("OLLAMA_ENABLED"),
			URL:     v.GetString("OLLAMA_URL"),
			Model:   v.GetString("OLLAMA_MODEL"),
			Timeout: v.GetDuration("OLLAMA_TIMEOUT"),
		},
		Sender: Sender{
			Name:          v.GetString("SENDER_NAME"),
			Street:        v.GetString("SENDER_STREET"),
			ZipCode:       v.GetString("SENDER_ZIP"),
			City:          v.GetString("SENDER_CITY"),
			Country:       v.GetString("SENDER_COUNTRY"),
			Phone:         v.GetString("SENDER_PHONE"),
			Email:         v.GetString("SENDER_EMAIL"),
			Website:       v.GetString("SENDER_WEBSITE"),
			IBAN:          v.GetString("SENDER_IBAN"),
			BIC:           v.GetString("SENDER_BIC"),
			BankName:      v.GetString("SENDER_BANK_NAME"),
			VATID:         v.GetString("SENDER_VAT_ID"),
			TaxNumber:     v.GetString("SENDER_TAX_NUMBER"),
			SmallBusiness: v.GetBool("SENDER_SMALL_BUSINESS"),
		},
		SenderPrivate: Sender{
			Name:    v.GetString("SENDER_PRIVATE_NAME"),
			Street:  v.GetString("SENDER_PRIVATE_STREET"),
			ZipCode: v.GetString("SENDER_PRIVATE_ZIP"),
			City:    v.GetString("SENDER_PRIVATE_CITY"),
			Country: v.GetString("SENDER_PRIVATE_COUNTRY"),
			Phone:   v.GetString("SENDER_PRIVATE_PHONE"),
			Email:   v.GetString("SENDER_PRIVATE_EMAIL"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Typst.Binary == "" {
		cfg.Typst.Binary = "/usr/local/bin/typst"
	}
	if cfg.Typst.TemplatesDir == "" {
		cfg.Typst.TemplatesDir = "./templates"
	}
	if cfg.Typst.OutputDir == "" {
		cfg.Typst.OutputDir = "./data/documents"
	}
	if cfg.Typst.Timeout == 0 {
		cfg.Typst.Timeout = 30 * time.Second
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "gemma2-small-ctx:latest"
	}
	if cfg.Ollama.Timeout == 0 {
		cfg.Ollama.Timeout = 120 * time.Second
	}
	if cfg.Sender.Country == "" {
		cfg.Sender.Country = "Deutschland"
	}
	if cfg.SenderPrivate.Country == "" {
		cfg.SenderPrivate.Country = "Deutschland"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Paperless.Enabled && cfg.Paperless.URL == "" {
		return fmt.Errorf("PAPERLESS_URL is required when paperless is enabled")
	}
	if cfg.Ollama.Enabled && cfg.Ollama.URL == "" {
		return fmt.Errorf("OLLAMA_URL is required when ollama is enabled")
	}
	return nil
}
