package tts

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultEndpoint    = "wss://tts-api.xfyun.cn/v2/tts"
	defaultSignedHost  = "ws-api.xfyun.cn"
	defaultRequestLine = "GET /v2/tts HTTP/1.1"
	defaultTimeout     = 15 * time.Second
	defaultOutputDir   = "audio"
)

// Credentials identify the application to the synthesis service
type Credentials struct {
	AppID     string
	APIKey    string
	APISecret string
}

// BusinessParams is the "business" section of the request. Values are passed
// through as-is; the service is the only validator.
type BusinessParams struct {
	Aue    string `json:"aue" yaml:"aue"`       // audio encoding: lame (mp3) or raw (pcm)
	Sfl    int    `json:"sfl" yaml:"sfl"`       // 1 enables streamed mp3, only meaningful with aue=lame
	Auf    string `json:"auf" yaml:"auf"`       // sample rate, audio/L16;rate=8000 or 16000
	Vcn    string `json:"vcn" yaml:"vcn"`       // voice
	Speed  int    `json:"speed" yaml:"speed"`   // 0-100
	Volume int    `json:"volume" yaml:"volume"` // 0-100
	Pitch  int    `json:"pitch" yaml:"pitch"`   // 0-100
	Bgs    int    `json:"bgs" yaml:"bgs"`       // background sound
	Tte    string `json:"tte" yaml:"tte"`       // text encoding
	Reg    string `json:"reg" yaml:"reg"`       // english pronunciation
	Rdn    string `json:"rdn" yaml:"rdn"`       // digit pronunciation
}

// DefaultBusinessParams returns the parameters used when none are configured
func DefaultBusinessParams() BusinessParams {
	return BusinessParams{
		Aue:    "lame",
		Sfl:    1,
		Auf:    "audio/L16;rate=16000",
		Vcn:    "aisjinger",
		Speed:  50,
		Volume: 50,
		Pitch:  50,
		Bgs:    0,
		Tte:    "utf8",
		Reg:    "2",
		Rdn:    "0",
	}
}

// FileExtension maps the configured encoding to the artifact extension
func (b BusinessParams) FileExtension() string {
	switch b.Aue {
	case "raw":
		return "pcm"
	case "speex", "speex-wb":
		return "spx"
	default:
		return "mp3"
	}
}

// XfyunConfig holds configuration for the XfyunTTS adapter
// Required fields:
// - Credentials: app id, api key and api secret from the iFlytek console
// Optional fields with defaults:
// - Endpoint: websocket endpoint (default: "wss://tts-api.xfyun.cn/v2/tts")
// - SignedHost: host written into the signature (default: "ws-api.xfyun.cn")
// - RequestLine: request line written into the signature (default: "GET /v2/tts HTTP/1.1")
// - Timeout: budget for one session (default: 15s)
// - OutputDir: directory audio files are written to (default: "audio")
// - Business: business parameters (default: DefaultBusinessParams)
type XfyunConfig struct {
	Credentials Credentials
	Business    BusinessParams
	Endpoint    string
	SignedHost  string
	RequestLine string
	Timeout     time.Duration
	OutputDir   string
	TLSInsecure bool // skip certificate verification, as some gateways require
}

// ValidateXfyunConfig validates the XfyunConfig
func ValidateXfyunConfig(config XfyunConfig) error {
	if config.Credentials.AppID == "" {
		return fmt.Errorf("xfyun app id is required")
	}

	if config.Credentials.APIKey == "" {
		return fmt.Errorf("xfyun API key is required")
	}

	if config.Credentials.APISecret == "" {
		return fmt.Errorf("xfyun API secret is required")
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", config.Timeout)
	}

	return nil
}

// withDefaults returns a copy of config with zero values replaced by defaults
func (config XfyunConfig) withDefaults(logger *zap.Logger) XfyunConfig {
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
		logger.Info("Using default endpoint", zap.String("endpoint", config.Endpoint))
	}

	if config.SignedHost == "" {
		config.SignedHost = defaultSignedHost
	}

	if config.RequestLine == "" {
		config.RequestLine = defaultRequestLine
	}

	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
		logger.Info("Using default timeout", zap.Duration("timeout", config.Timeout))
	}

	if config.OutputDir == "" {
		config.OutputDir = defaultOutputDir
		logger.Info("Using default output directory", zap.String("outputDir", config.OutputDir))
	}

	if config.Business == (BusinessParams{}) {
		config.Business = DefaultBusinessParams()
		logger.Info("Using default business parameters", zap.String("voice", config.Business.Vcn))
	}

	return config
}

// LoadBusinessParams reads business parameters from a YAML file.
// Keys missing from the file keep their default value.
func LoadBusinessParams(path string) (BusinessParams, error) {
	params := DefaultBusinessParams()

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("failed to read business params: %w", err)
	}

	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("failed to parse business params: %w", err)
	}

	return params, nil
}

// NewXfyunConfigFromEnv creates a new XfyunConfig from environment variables
func NewXfyunConfigFromEnv() (XfyunConfig, error) {
	config := XfyunConfig{
		Credentials: Credentials{
			AppID:     os.Getenv("XFYUN_APP_ID"),
			APIKey:    os.Getenv("XFYUN_API_KEY"),
			APISecret: os.Getenv("XFYUN_API_SECRET"),
		},
		Endpoint:  os.Getenv("XFYUN_ENDPOINT"),
		OutputDir: os.Getenv("XFYUN_OUTPUT_DIR"),
		Business:  DefaultBusinessParams(),
	}

	if path := os.Getenv("XFYUN_BUSINESS_FILE"); path != "" {
		params, err := LoadBusinessParams(path)
		if err != nil {
			return config, err
		}
		config.Business = params
	}

	if timeoutStr := os.Getenv("XFYUN_TIMEOUT_SECONDS"); timeoutStr != "" {
		if seconds, err := strconv.ParseFloat(timeoutStr, 64); err == nil && seconds > 0 {
			config.Timeout = time.Duration(seconds * float64(time.Second))
		}
	}

	if insecure, err := strconv.ParseBool(os.Getenv("XFYUN_TLS_INSECURE")); err == nil {
		config.TLSInsecure = insecure
	}

	// Single parameters override whatever the file said
	if voice := os.Getenv("XFYUN_VOICE"); voice != "" {
		config.Business.Vcn = voice
	}

	if aue := os.Getenv("XFYUN_AUE"); aue != "" {
		config.Business.Aue = aue
	}

	for env, target := range map[string]*int{
		"XFYUN_SPEED":  &config.Business.Speed,
		"XFYUN_VOLUME": &config.Business.Volume,
		"XFYUN_PITCH":  &config.Business.Pitch,
	} {
		if raw := os.Getenv(env); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				*target = v
			}
		}
	}

	return config, nil
}
