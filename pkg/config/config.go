package config

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/cdslive/pkg/conn"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".cdslive.yaml"

const (
	EnvHost         = "CDS_HOST"
	EnvAPIBase      = "CDS_API_BASE"
	EnvSessionToken = "CDS_SESSION_TOKEN"
)

var ErrNoHost = errors.New("no CDS host configured")

type File struct {
	// Host is the console URL, e.g. https://cds.example.com.
	Host           string        `yaml:"host"`
	APIBase        string        `yaml:"api_base,omitempty"`
	SessionToken   string        `yaml:"session_token,omitempty"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay,omitempty"`
	QueueStatuses  []string      `yaml:"queue_statuses,omitempty"`
	Scripts        []string      `yaml:"scripts,omitempty"`
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFilename
	}
	return filepath.Join(home, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// LoadEnvFile loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "stat env file")
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

// ApplyEnv overrides file values with CDS_* environment variables.
func (f *File) ApplyEnv() {
	if v := os.Getenv(EnvHost); v != "" {
		f.Host = v
	}
	if v := os.Getenv(EnvAPIBase); v != "" {
		f.APIBase = v
	}
	if v := os.Getenv(EnvSessionToken); v != "" {
		f.SessionToken = v
	}
}

func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file (default ~/"+DefaultConfigFilename+")")
	fs.String("env-file", ".env", "Path to a .env file")
	fs.String("host", "", "CDS console URL (env "+EnvHost+")")
	fs.String("api-base", "", "API path prefix (default "+conn.DefaultAPIBase+")")
	fs.String("token", "", "Session token (env "+EnvSessionToken+")")
	fs.Duration("reconnect-delay", 0, "Delay between reconnect attempts")
	fs.StringSlice("status", nil, "Queue statuses to fetch")
}

// Load layers defaults, the yaml file, the environment and the flags that
// were explicitly set on fs, in that order.
func Load(fs *pflag.FlagSet) (*File, error) {
	path, _ := fs.GetString("config")
	envFile, _ := fs.GetString("env-file")

	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	var (
		cfg *File
		err error
	)
	if path != "" {
		cfg, err = LoadFromFile(path)
	} else {
		cfg, err = LoadOptional(DefaultPath())
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if fs.Changed("host") {
		cfg.Host, _ = fs.GetString("host")
	}
	if fs.Changed("api-base") {
		cfg.APIBase, _ = fs.GetString("api-base")
	}
	if fs.Changed("token") {
		cfg.SessionToken, _ = fs.GetString("token")
	}
	if fs.Changed("reconnect-delay") {
		cfg.ReconnectDelay, _ = fs.GetDuration("reconnect-delay")
	}
	if fs.Changed("status") {
		cfg.QueueStatuses, _ = fs.GetStringSlice("status")
	}
	return cfg, nil
}

func (f *File) Validate() error {
	if strings.TrimSpace(f.Host) == "" {
		return ErrNoHost
	}
	if f.ReconnectDelay < 0 {
		return errors.Errorf("negative reconnect delay %s", f.ReconnectDelay)
	}
	if _, err := f.WebsocketURL(); err != nil {
		return err
	}
	return nil
}

func (f *File) API() string {
	base := strings.TrimSpace(f.APIBase)
	if base == "" {
		base = conn.DefaultAPIBase
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}

// APIURL is the http(s) root of the API, e.g. https://cds.example.com/cdsapi.
func (f *File) APIURL() string {
	return strings.TrimSuffix(f.Host, "/") + f.API()
}

func (f *File) WebsocketURL() (string, error) {
	return conn.TargetURL(f.Host, f.API())
}

func (f *File) Delay() time.Duration {
	if f.ReconnectDelay <= 0 {
		return conn.DefaultRetryDelay
	}
	return f.ReconnectDelay
}

func (f *File) Statuses() []queue.Status {
	if len(f.QueueStatuses) == 0 {
		return queue.DefaultStatuses
	}
	out := make([]queue.Status, 0, len(f.QueueStatuses))
	for _, s := range f.QueueStatuses {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, queue.Status(s))
		}
	}
	return out
}

// HTTPClient returns a client that sends the session token as a bearer
// token. Without a token it is the default client.
func HTTPClient(ctx context.Context, token string) *http.Client {
	if token == "" {
		return http.DefaultClient
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}
