package utils

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Limits are the field-length bounds applied by the validation layer. They
// are carried explicitly instead of living in ambient global state so the
// validator and the services receive exactly one source of truth at startup.
type Limits struct {
	EmailMaxLen     int `yaml:"EMAIL_MAX_LEN"`
	UsernameMaxLen  int `yaml:"USERNAME_MAX_LEN"`
	FirstNameMaxLen int `yaml:"FIRSTNAME_MAX_LEN"`
	LastNameMaxLen  int `yaml:"LASTNAME_MAX_LEN"`
	PasswordMaxLen  int `yaml:"PASSWORD_MAX_LEN"`
}

type AppConfig struct {
	AppURL  string `yaml:"APP_URL"`
	AppPort string `yaml:"APP_PORT"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	JWTSecret string `yaml:"JWT_SECRET"`

	// Mailing configuration
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         int    `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`

	// AWS S3 configuration for recipe images
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	Limits Limits `yaml:"LIMITS"`
}

func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := new(AppConfig)
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.Limits.EmailMaxLen == 0 {
		c.Limits.EmailMaxLen = 254
	}
	if c.Limits.UsernameMaxLen == 0 {
		c.Limits.UsernameMaxLen = 150
	}
	if c.Limits.FirstNameMaxLen == 0 {
		c.Limits.FirstNameMaxLen = 150
	}
	if c.Limits.LastNameMaxLen == 0 {
		c.Limits.LastNameMaxLen = 150
	}
	if c.Limits.PasswordMaxLen == 0 {
		c.Limits.PasswordMaxLen = 150
	}
}
