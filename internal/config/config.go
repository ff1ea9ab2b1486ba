package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del proceso.
type Config struct {
	HTTPHost     string `env:"HTTP_HOST" envDefault:"127.0.0.1"`
	HTTPPort     string `env:"HTTP_PORT" envDefault:"5005"`
	WSPort       int    `env:"WS_PORT" envDefault:"8765"`
	EmotionsPath string `env:"EMOTIONS_PATH" envDefault:"config/emotions.json"`
	UseRouter    bool   `env:"USE_ROUTER" envDefault:"true"`
	PrintLogs    bool   `env:"PRINT_LOGS" envDefault:"true"`
	InputMode    string `env:"INPUT_MODE" envDefault:"console"`
	STTCommand   string `env:"STT_COMMAND"`

	TTSBackend   string `env:"TTS_BACKEND" envDefault:"dummy"`
	TTSVoice     string `env:"TTS_VOICE"`
	TTSRate      int    `env:"TTS_RATE" envDefault:"175"`
	TTSQueueSize int    `env:"TTS_QUEUE_SIZE" envDefault:"16"`

	PlayerBackend    string   `env:"PLAYER_BACKEND" envDefault:"exec"`
	PlayerCommand    string   `env:"PLAYER_COMMAND" envDefault:"mpv"`
	PlayerArgs       []string `env:"PLAYER_ARGS" envSeparator:" " envDefault:"--really-quiet --no-terminal --keep-open=no"`
	PlayerLoopFlag   string   `env:"PLAYER_LOOP_FLAG" envDefault:"--loop-file=inf"`
	PlayerDummyClipS float64  `env:"PLAYER_DUMMY_CLIP_SECONDS" envDefault:"3"`
	MediaWatch       bool     `env:"MEDIA_WATCH" envDefault:"false"`

	ReplyBackend      string  `env:"REPLY_BACKEND" envDefault:"stub"`
	LLMBaseURL        string  `env:"LLM_BASE_URL" envDefault:"http://localhost:1234/v1"`
	LLMAPIKey         string  `env:"LLM_API_KEY"`
	LLMModel          string  `env:"LLM_MODEL" envDefault:"openai/gpt-oss-20b"`
	LLMTemperature    float64 `env:"LLM_TEMPERATURE" envDefault:"0.6"`
	LLMTopP           float64 `env:"LLM_TOP_P" envDefault:"0.95"`
	LLMMaxTokens      int     `env:"LLM_MAX_TOKENS" envDefault:"512"`
	LLMTimeoutSeconds int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`

	LogFile  string `env:"LOG_FILE" envDefault:"logs/logs.txt"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogEcho  bool   `env:"LOG_ECHO" envDefault:"true"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitPerMinute  int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"0"`
	AuthJWTSecret       string `env:"AUTH_JWT_SECRET"`
	AuthTokenTTLMinutes int    `env:"AUTH_TOKEN_TTL_MINUTES" envDefault:"1440"`

	CorpusPath           string `env:"CORPUS_PATH" envDefault:"toolkit/data/sitcom.jsonl"`
	SessionsDir          string `env:"SESSIONS_DIR" envDefault:"data/sessions"`
	SessionID            string `env:"NESTOR_SESSION_ID"`
	StyleCompact         bool   `env:"STYLE_COMPACT" envDefault:"false"`
	StyleTargetSentences int    `env:"STYLE_TARGET_SENTENCES" envDefault:"2"`
	StyleEmoji           bool   `env:"STYLE_EMOJI" envDefault:"true"`
	JokeRating           string `env:"JOKE_RATING" envDefault:"G"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.InputMode = strings.ToLower(strings.TrimSpace(cfg.InputMode))
	cfg.TTSBackend = strings.ToLower(strings.TrimSpace(cfg.TTSBackend))
	cfg.PlayerBackend = strings.ToLower(strings.TrimSpace(cfg.PlayerBackend))
	cfg.ReplyBackend = strings.ToLower(strings.TrimSpace(cfg.ReplyBackend))
	return &cfg, nil
}

// LLMTimeout devuelve el timeout de las llamadas al modelo.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// DummyClipDuration es la duración simulada de un clip con el backend dummy.
func (c *Config) DummyClipDuration() time.Duration {
	if c.PlayerDummyClipS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.PlayerDummyClipS * float64(time.Second))
}
