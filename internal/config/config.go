package config

import (
	"errors"
	"strings"
	"time"

	"wallet_chat/internal/utils/log"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	BackendMemory     = "memory"
	BackendPersistent = "persistent"
)

type (
	Config struct {
		Server  Server
		Storage Storage
		Mongo   Mongo
		Redis   Redis
		JWT     JWT
		Auth    Auth
		Session Session
		Payment Payment
		Logger  LoggerMode
		Client  Client
	}

	Server struct {
		Addr           string
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}

	Storage struct {
		Backend string
	}

	Mongo struct {
		URI      string
		Database string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	JWT struct {
		Secret    string
		ExpiresIn time.Duration `mapstructure:"expires_in"`
	}

	Auth struct {
		ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
	}

	Session struct {
		GrantDuration time.Duration `mapstructure:"grant_duration"`
	}

	Payment struct {
		Timeout          time.Duration
		RPCURL           string `mapstructure:"rpc_url"`
		TrustClientProof bool   `mapstructure:"trust_client_proof"`
		Custodial        Custodial
	}

	Custodial struct {
		BaseURL      string `mapstructure:"base_url"`
		APIKey       string `mapstructure:"api_key"`
		EntitySecret string `mapstructure:"entity_secret"`
		TokenID      string `mapstructure:"token_id"`
		Destination  string
		Amount       string
	}

	LoggerMode struct {
		Development bool
		Level       string
	}

	Client struct {
		ServerURL string `mapstructure:"server_url"`
		KeyDir    string `mapstructure:"key_dir"`
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "localhost:4000")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "wallet_chat")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "devsecret")
	v.SetDefault("jwt.expires_in", 7*24*time.Hour)
	v.SetDefault("auth.challenge_ttl", 5*time.Minute)
	v.SetDefault("session.grant_duration", time.Hour)
	v.SetDefault("payment.timeout", 30*time.Second)
	v.SetDefault("payment.rpc_url", "")
	v.SetDefault("payment.trust_client_proof", false)
	v.SetDefault("payment.custodial.base_url", "https://api.circle.com/v1/w3s")
	v.SetDefault("payment.custodial.api_key", "")
	v.SetDefault("payment.custodial.entity_secret", "")
	v.SetDefault("payment.custodial.token_id", "")
	v.SetDefault("payment.custodial.destination", "")
	v.SetDefault("payment.custodial.amount", "0.001")
	v.SetDefault("logger.development", true)
	v.SetDefault("logger.level", "info")
	v.SetDefault("client.server_url", "http://localhost:4000")
	v.SetDefault("client.key_dir", ".wallet_chat")
}

// LoadConfig reads config/<filename>.yaml. A missing file is not an error:
// defaults and WALLETCHAT_* environment variables still apply.
func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WALLETCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warn("config file not found, using defaults", zap.String("name", filename))
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	err := v.Unmarshal(&c)
	if err != nil {
		log.Error("Unable to unmarshal config", zap.Error(err))
		return nil, err
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendPersistent:
	default:
		return nil, errors.New("storage.backend must be memory or persistent")
	}
	return &c, nil
}

// Load is LoadConfig followed by ParseConfig.
func Load(filename string) (*Config, error) {
	v, err := LoadConfig(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(v)
}
