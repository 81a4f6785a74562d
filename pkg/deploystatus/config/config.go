package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nais/liberator/pkg/conftools"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type AWS struct {
	Region      string `json:"region"`
	EndpointURL string `json:"endpoint-url"`
}

type Notification struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

type Schedule struct {
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Timezone string `json:"timezone"`
}

type Config struct {
	AWS                  AWS          `json:"aws"`
	ApplicationName      string       `json:"application-name"`
	DeploymentGroup      string       `json:"deployment-group"`
	LogFormat            string       `json:"log-format"`
	LogLevel             string       `json:"log-level"`
	MetricsListenAddress string       `json:"metrics-listen-address"`
	MetricsPath          string       `json:"metrics-path"`
	Notification         Notification `json:"notification"`
	OtelCollectorURL     string       `json:"otel-collector-url"`
	Schedule             Schedule     `json:"schedule"`
}

const (
	AWSEndpointURL         = "aws.endpoint-url"
	AWSRegion              = "aws.region"
	ApplicationName        = "application-name"
	DeploymentGroup        = "deployment-group"
	LogFormat              = "log-format"
	LogLevel               = "log-level"
	MetricsListenAddress   = "metrics-listen-address"
	MetricsPath            = "metrics-path"
	NotificationTimeout    = "notification.timeout"
	NotificationURL        = "notification.url"
	OtelCollectorURL       = "otel-collector-url"
	ScheduleHour           = "schedule.hour"
	ScheduleMinute         = "schedule.minute"
	ScheduleTimezone       = "schedule.timezone"
	dotenvFile             = ".env"
	programName            = "deploystatus"
	defaultNotificationURL = "https://your-api-endpoint.com/success"
)

// Bind environment variables understood by the AWS tooling
func bindAWS() {
	viper.BindEnv(AWSRegion, "AWS_REGION")
	viper.BindEnv(AWSEndpointURL, "AWS_ENDPOINT_URL")
}

// Load variables from a .env file in the working directory into the process environment.
// Variables already present in the environment take precedence.
func loadDotenv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Initialize() (*Config, error) {
	if err := loadDotenv(dotenvFile); err != nil {
		return nil, err
	}

	conftools.Initialize(programName)
	bindAWS()

	flag.String(LogFormat, "text", "Log format, either 'json' or 'text'.")
	flag.String(LogLevel, "info", "Logging verbosity level.")

	flag.String(AWSRegion, "us-east-1", "AWS region of the CodeDeploy application.")
	flag.String(AWSEndpointURL, "", "Override the CodeDeploy endpoint, e.g. for LocalStack.")
	flag.String(ApplicationName, "", "Restrict reconciliation to this CodeDeploy application; every deployment in the account when empty.")
	flag.String(DeploymentGroup, "", "Restrict reconciliation to this deployment group of the application; every group when empty.")

	flag.String(NotificationURL, defaultNotificationURL, "Endpoint receiving the daily status notification.")
	flag.Duration(NotificationTimeout, 10*time.Second, "Timeout for the status notification request.")

	flag.Int(ScheduleHour, 16, "Hour of day the notification is sent.")
	flag.Int(ScheduleMinute, 0, "Minute of the hour the notification is sent.")
	flag.String(ScheduleTimezone, "America/New_York", "IANA timezone the schedule is interpreted in.")

	flag.String(MetricsListenAddress, "127.0.0.1:8081", "Serve metrics on this address.")
	flag.String(MetricsPath, "/metrics", "Serve metrics on this endpoint.")
	flag.String(OtelCollectorURL, "", "OpenTelemetry collector endpoint; traces are discarded when empty.")

	return &Config{}, nil
}

func (cfg *Config) Validate() error {
	if len(cfg.DeploymentGroup) > 0 && len(cfg.ApplicationName) == 0 {
		return fmt.Errorf("deployment group '%s' requires an application name", cfg.DeploymentGroup)
	}

	if len(cfg.AWS.Region) == 0 {
		return fmt.Errorf("AWS region is required")
	}

	u, err := url.Parse(cfg.Notification.URL)
	if err != nil {
		return fmt.Errorf("wrong format of notification URL: %s", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("notification URL must use http or https, got '%s'", cfg.Notification.URL)
	}

	if cfg.Notification.Timeout <= 0 {
		return fmt.Errorf("notification timeout must be positive")
	}

	if cfg.Schedule.Hour < 0 || cfg.Schedule.Hour > 23 {
		return fmt.Errorf("schedule hour must be between 0 and 23")
	}

	if cfg.Schedule.Minute < 0 || cfg.Schedule.Minute > 59 {
		return fmt.Errorf("schedule minute must be between 0 and 59")
	}

	return nil
}
