package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	SMTP struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"smtp"`

	// File-backed state: the mutable policy document and the two
	// append-only outcome logs.
	Storage struct {
		PolicyFile string `yaml:"policy_file"`
		SentFile   string `yaml:"sent_file"`
		FailedFile string `yaml:"failed_file"`
	} `yaml:"storage"`

	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`
}

func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// Missing config file is fine for a local run; defaults cover everything.
	} else {
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, err
		}
	}

	config.applyDefaults()
	config.overrideWithEnvVars()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Storage.PolicyFile == "" {
		c.Storage.PolicyFile = "config.json"
	}
	if c.Storage.SentFile == "" {
		c.Storage.SentFile = "Sent_Emails.csv"
	}
	if c.Storage.FailedFile == "" {
		c.Storage.FailedFile = "Failed_Emails.csv"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
}

func (c *Config) overrideWithEnvVars() {
	if port := GetEnv("PORT", ""); port != "" {
		c.Server.Port = port
	}
	if host := GetEnv("HOST", ""); host != "" {
		c.Server.Host = host
	}
	if env := GetEnv("APP_ENV", ""); env != "" {
		c.App.Env = env
	}
	if smtpHost := GetEnv("SMTP_HOST", ""); smtpHost != "" {
		c.SMTP.Host = smtpHost
	}
	if smtpPort := GetEnv("SMTP_PORT", ""); smtpPort != "" {
		if p, err := strconv.Atoi(smtpPort); err == nil {
			c.SMTP.Port = p
		}
	}
	if policyFile := GetEnv("POLICY_FILE", ""); policyFile != "" {
		c.Storage.PolicyFile = policyFile
	}
	if sentFile := GetEnv("SENT_FILE", ""); sentFile != "" {
		c.Storage.SentFile = sentFile
	}
	if failedFile := GetEnv("FAILED_FILE", ""); failedFile != "" {
		c.Storage.FailedFile = failedFile
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func MustLoadConfig(configPath string) *Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}
