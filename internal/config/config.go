package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	OracleLLM       = "llm"
	OracleHeuristic = "heuristic"

	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"

	JournalNone     = "none"
	JournalRedis    = "redis"
	JournalPostgres = "postgres"
	JournalSQLite   = "sqlite"
)

type Config struct {
	LogLevel string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string   `yaml:"http-port" env:"AGENT_HTTP_PORT" env-default:""`
	Oracle   string   `yaml:"oracle" env:"AGENT_ORACLE" env-default:"llm"`
	Game     Game     `yaml:"game"`
	Task     Task     `yaml:"task"`
	LLM      LLM      `yaml:"llm"`
	Journal  Journal  `yaml:"journal"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
}

type Game struct {
	ID             string        `yaml:"id" env:"WEREWOLF_GAME_ID" env-required:"true"`
	PlayerID       string        `yaml:"player-id" env:"WEREWOLF_PLAYER_ID" env-required:"true"`
	PlayerIndex    int           `yaml:"player-index" env:"WEREWOLF_PLAYER_INDEX" env-default:"0"`
	PlayerRole     string        `yaml:"player-role" env:"WEREWOLF_PLAYER_ROLE" env-default:""`
	Token          string        `yaml:"token" env:"WEREWOLF_GAME_TOKEN" env-default:""`
	APIBaseURL     string        `yaml:"api-base-url" env:"WEREWOLF_API_BASE_URL" env-default:"http://localhost:8080"`
	PollInterval   time.Duration `yaml:"poll-interval" env:"WEREWOLF_POLL_INTERVAL" env-default:"2s"`
	RequestTimeout time.Duration `yaml:"request-timeout" env:"WEREWOLF_REQUEST_TIMEOUT" env-default:"10s"`
}

// Task is an optional side objective handed to the seat by the game host.
type Task struct {
	Type        string `yaml:"type" env:"PLAYER_TASK_TYPE" env-default:""`
	Name        string `yaml:"name" env:"PLAYER_TASK_NAME" env-default:""`
	Description string `yaml:"description" env:"PLAYER_TASK_DESCRIPTION" env-default:""`
	Reward      string `yaml:"reward" env:"PLAYER_TASK_REWARD" env-default:""`
}

type LLM struct {
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	APIKey      string        `yaml:"api-key" env:"LLM_API_KEY" env-default:""`
	Model       string        `yaml:"model" env:"LLM_MODEL" env-default:"deepseek-v3"`
	APIURL      string        `yaml:"api-url" env:"LLM_API_URL" env-default:"https://api.openai.com/v1/chat/completions"`
	AWSRegion   string        `yaml:"aws-region" env:"LLM_AWS_REGION" env-default:"us-west-2"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"300s"`
	MaxTokens   int           `yaml:"max-tokens" env:"LLM_MAX_TOKENS" env-default:"4096"`
	Temperature float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
}

type Journal struct {
	Driver string `yaml:"driver" env:"JOURNAL_DRIVER" env-default:"none"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN" env-default:""`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"journal.db"`
}

var (
	ErrUnknownOracle   = errors.New("unknown oracle")
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrUnknownJournal  = errors.New("unknown journal driver")
	ErrBadPollInterval = errors.New("poll interval must be positive")
	ErrMissingDSN      = errors.New("postgres journal needs a dsn")
)

// MustLoad - loads config.yml when it exists, the environment otherwise.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Oracle {
	case OracleLLM, OracleHeuristic:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOracle, that.Oracle)
	}

	switch that.LLM.Provider {
	case ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, that.LLM.Provider)
	}

	switch that.Journal.Driver {
	case JournalNone, JournalRedis, JournalPostgres, JournalSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJournal, that.Journal.Driver)
	}

	if that.Journal.Driver == JournalPostgres && that.Postgres.DSN == "" {
		return ErrMissingDSN
	}

	if that.Game.PollInterval <= 0 {
		return ErrBadPollInterval
	}

	return nil
}

// UseLLM reports whether the LLM oracle can be installed; without a key the heuristic is used.
func (that *Config) UseLLM() bool {
	return that.Oracle == OracleLLM && that.LLM.APIKey != ""
}

func (that *Task) IsSet() bool {
	return that.Type != ""
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
