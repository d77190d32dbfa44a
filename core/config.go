package core

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// insights data source strategies
const (
	InsightsModeLive = "live"
	InsightsModeDemo = "demo"
)

type (
	BackendConfig struct {
		Scheme   string
		Host     string
		Port     int
		BasePath string
		Timeout  time.Duration // zero means no deadline
	}

	InsightsConfig struct {
		Mode        string // InsightsModeLive | InsightsModeDemo
		OfflineDemo bool   // serve demo insights when the backend is unreachable
	}

	// Config is built once at startup and must be treated as read-only afterwards.
	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		WorkDir      string
		RollbarToken string
		Backend      BackendConfig
		Insights     InsightsConfig
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed by the current env, eg. DEV_BACKEND_HOST=10.0.0.12
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "School Pulse")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("backend.scheme", "http")
	v.SetDefault("backend.host", "localhost")
	v.SetDefault("backend.port", 8000)
	v.SetDefault("backend.basePath", "/api")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("insights.mode", InsightsModeLive)
	v.SetDefault("insights.offlineDemo", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		WorkDir:      workDir,
		RollbarToken: v.GetString("rollbarToken"),
		Backend: BackendConfig{
			Scheme:   strings.ToLower(CleanString(v.GetString("backend.scheme"))),
			Host:     CleanString(v.GetString("backend.host")),
			Port:     v.GetInt("backend.port"),
			BasePath: CleanString(v.GetString("backend.basePath")),
			Timeout:  v.GetDuration("backend.timeout"),
		},
		Insights: InsightsConfig{
			Mode:        CleanString(v.GetString("insights.mode"), true /* lower */),
			OfflineDemo: v.GetBool("insights.offlineDemo"),
		},
	}
	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) check() error {
	switch {
	case conf.Backend.Host == "":
		return errors.New("config: backend.host is required")
	case conf.Backend.Port <= 0 || conf.Backend.Port > 65535:
		return errors.Errorf("config: invalid backend.port %d", conf.Backend.Port)
	case conf.Backend.Scheme != "http" && conf.Backend.Scheme != "https":
		return errors.Errorf("config: unsupported backend.scheme %q", conf.Backend.Scheme)
	case conf.Backend.Timeout < 0:
		return errors.Errorf("config: negative backend.timeout %s", conf.Backend.Timeout)
	}
	switch conf.Insights.Mode {
	case InsightsModeLive, InsightsModeDemo:
	default:
		return errors.Errorf("config: unknown insights.mode %q", conf.Insights.Mode)
	}
	return nil
}

// BaseURL returns the backend API root, eg. http://192.168.29.132:8000/api
func (conf *Config) BaseURL() string {
	u := url.URL{
		Scheme: conf.Backend.Scheme,
		Host:   net.JoinHostPort(conf.Backend.Host, strconv.Itoa(conf.Backend.Port)),
		Path:   "/" + strings.Trim(conf.Backend.BasePath, "/"),
	}
	return strings.TrimSuffix(u.String(), "/")
}

// Getwd tries to find the project root (the closest parent holding a "config" dir or go.mod).
// go-test changes the working directory to the test package being run during tests.
// Falls back to the current working directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		for _, marker := range []string{"config", "go.mod"} {
			if _, err := os.Stat(filepath.Join(currDir, marker)); err == nil {
				return currDir
			}
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
