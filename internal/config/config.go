// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/ixlbot/api/schemas"
)

// Config holds the entire application configuration. It is built once by
// NewConfigFromViper and then handed, read only, to every component.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Site    SiteConfig    `mapstructure:"site" yaml:"site"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Solver  SolverConfig  `mapstructure:"solver" yaml:"solver"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance driven over CDP.
type BrowserConfig struct {
	Headless    bool     `mapstructure:"headless" yaml:"headless"`
	ExecPath    string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args        []string `mapstructure:"args" yaml:"args"`
	// WindowWidth and WindowHeight size the window so the capture region
	// lands on the rendered problem.
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// SiteConfig describes the exercise site: where to sign in, where to solve
// and how its controls are found.
type SiteConfig struct {
	LoginURL string `mapstructure:"login_url" yaml:"login_url"`
	// LoginPathMarker is a substring of the sign-in URL; login is complete
	// once the current URL no longer contains it.
	LoginPathMarker string          `mapstructure:"login_path_marker" yaml:"login_path_marker"`
	TargetURL       string          `mapstructure:"target_url" yaml:"target_url"`
	Username        string          `mapstructure:"username" yaml:"username"`
	Password        string          `mapstructure:"password" yaml:"-"`
	Selectors       SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
}

// SelectorsConfig lists every element the bootstrap and the solver look for.
type SelectorsConfig struct {
	UsernameField   schemas.Selector `mapstructure:"username_field" yaml:"username_field"`
	PasswordField   schemas.Selector `mapstructure:"password_field" yaml:"password_field"`
	SignInButton    schemas.Selector `mapstructure:"sign_in_button" yaml:"sign_in_button"`
	RejectionMarker schemas.Selector `mapstructure:"rejection_marker" yaml:"rejection_marker"`
	DismissButton   schemas.Selector `mapstructure:"dismiss_button" yaml:"dismiss_button"`
	SubmitButton    schemas.Selector `mapstructure:"submit_button" yaml:"submit_button"`
	// AnswerFields is tried in order; only one field type is present per question.
	AnswerFields []schemas.Selector `mapstructure:"answer_fields" yaml:"answer_fields"`
}

// AgentConfig holds settings related to the reasoning service.
type AgentConfig struct {
	LLM LLMModelConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMProvider defines the supported reasoning service providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMModelConfig defines the configuration for the vision model.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// Temperature is sent only when set; nil leaves the provider's default.
	Temperature *float32 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	// RequestsPerMinute throttles calls to the provider. Zero disables throttling.
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Instruction       string  `mapstructure:"instruction" yaml:"instruction"`
}

// SolverConfig tunes the polling loop.
type SolverConfig struct {
	SubmitTimeout time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout"`
	ErrorPause    time.Duration `mapstructure:"error_pause" yaml:"error_pause"`
	IdlePause     time.Duration `mapstructure:"idle_pause" yaml:"idle_pause"`
}

// CaptureConfig controls where and what is screenshotted for each problem.
type CaptureConfig struct {
	Region  schemas.Region `mapstructure:"region" yaml:"region"`
	TempDir string         `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// DefaultInstruction is the fixed prompt sent alongside every capture.
const DefaultInstruction = "Answer the math problem in the image. " +
	"Only provide the answer and nothing else. " +
	"Write fractions in this format: 1/2, 2/3, 3/5. " +
	"Do not include curly braces {} in any answer."

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "ixlbot")
	v.SetDefault("logger.log_file", "ixlbot.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.wait_timeout", "10s")
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.debug", false)

	// -- Site --
	v.SetDefault("site.login_url", "https://www.ixl.com/signin")
	v.SetDefault("site.login_path_marker", "signin")
	setSelectorDefault(v, "site.selectors.username_field", schemas.ID("siusername"))
	setSelectorDefault(v, "site.selectors.password_field", schemas.ID("sipassword"))
	setSelectorDefault(v, "site.selectors.sign_in_button", schemas.ID("signin-button"))
	setSelectorDefault(v, "site.selectors.rejection_marker",
		schemas.XPath("//h2[contains(@class,'feedback-header correct') and text()='Sorry, incorrect...']"))
	setSelectorDefault(v, "site.selectors.dismiss_button",
		schemas.XPath("//button[contains(@class,'crisp-button') and text()='Got it']"))
	setSelectorDefault(v, "site.selectors.submit_button",
		schemas.XPath("//button[normalize-space(@class)='crisp-button' and text()='Submit']"))
	v.SetDefault("site.selectors.answer_fields", []map[string]interface{}{
		{"kind": string(schemas.ByClass), "value": "proxy-input"},
		{"kind": string(schemas.ByClass), "value": "fillIn"},
	})

	// -- Agent --
	v.SetDefault("agent.llm.provider", string(ProviderGemini))
	v.SetDefault("agent.llm.model", "gemini-2.5-flash-preview-09-2025")
	v.SetDefault("agent.llm.api_timeout", "60s")
	v.SetDefault("agent.llm.requests_per_minute", 0)
	v.SetDefault("agent.llm.instruction", DefaultInstruction)

	// -- Solver --
	v.SetDefault("solver.submit_timeout", "3s")
	v.SetDefault("solver.error_pause", "1s")
	v.SetDefault("solver.idle_pause", "0s")

	// -- Capture --
	v.SetDefault("capture.region.x", 100)
	v.SetDefault("capture.region.y", 200)
	v.SetDefault("capture.region.width", 1400)
	v.SetDefault("capture.region.height", 800)
	v.SetDefault("capture.temp_dir", "")
}

func setSelectorDefault(v *viper.Viper, key string, sel schemas.Selector) {
	v.SetDefault(key+".kind", string(sel.Kind))
	v.SetDefault(key+".value", sel.Value)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
// Defaults must already be registered on v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets and credentials are read from well known variables as well as
	// the prefixed keys.
	v.BindEnv("agent.llm.api_key", "IXLBOT_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("site.username", "IXLBOT_USERNAME")
	v.BindEnv("site.password", "IXLBOT_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive")
	}
	if c.Browser.WaitTimeout <= 0 {
		return fmt.Errorf("browser.wait_timeout must be a positive duration")
	}
	if err := c.Site.Selectors.Validate(); err != nil {
		return fmt.Errorf("site.selectors configuration invalid: %w", err)
	}
	if err := c.Agent.LLM.Validate(); err != nil {
		return fmt.Errorf("agent.llm configuration invalid: %w", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver configuration invalid: %w", err)
	}
	if c.Capture.Region.Empty() {
		return fmt.Errorf("capture.region must have a positive width and height")
	}
	if c.Capture.Region.X < 0 || c.Capture.Region.Y < 0 {
		return fmt.Errorf("capture.region origin must not be negative")
	}
	return nil
}

// Validate checks that every selector has a known kind and a value.
func (s *SelectorsConfig) Validate() error {
	named := map[string]schemas.Selector{
		"username_field":   s.UsernameField,
		"password_field":   s.PasswordField,
		"sign_in_button":   s.SignInButton,
		"rejection_marker": s.RejectionMarker,
		"dismiss_button":   s.DismissButton,
		"submit_button":    s.SubmitButton,
	}
	for name, sel := range named {
		if err := validateSelector(sel); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if len(s.AnswerFields) == 0 {
		return fmt.Errorf("answer_fields must list at least one selector")
	}
	for i, sel := range s.AnswerFields {
		if err := validateSelector(sel); err != nil {
			return fmt.Errorf("answer_fields[%d]: %w", i, err)
		}
	}
	return nil
}

func validateSelector(sel schemas.Selector) error {
	switch sel.Kind {
	case schemas.ByXPath, schemas.ByClass, schemas.ByID, schemas.ByQuery:
	default:
		return fmt.Errorf("unknown selector kind %q", sel.Kind)
	}
	if sel.Value == "" {
		return fmt.Errorf("selector value is empty")
	}
	return nil
}

// Validate checks the LLM settings. The API key is checked when a client is
// built so that commands which never call the provider still work without one.
func (l *LLMModelConfig) Validate() error {
	switch l.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported provider %q (supported: %s, %s)", l.Provider, ProviderGemini, ProviderOpenAI)
	}
	if l.Model == "" {
		return fmt.Errorf("model is required")
	}
	if l.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be a positive duration")
	}
	if l.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	if t := l.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if l.Instruction == "" {
		return fmt.Errorf("instruction must not be empty")
	}
	return nil
}

// Validate checks the solver timings.
func (s *SolverConfig) Validate() error {
	if s.SubmitTimeout <= 0 {
		return fmt.Errorf("submit_timeout must be a positive duration")
	}
	if s.ErrorPause <= 0 {
		return fmt.Errorf("error_pause must be a positive duration")
	}
	if s.IdlePause < 0 {
		return fmt.Errorf("idle_pause must not be negative")
	}
	return nil
}
