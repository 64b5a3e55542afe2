package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Milvus    MilvusConfig
	LLM       LLMConfig
	Evidence  EvidenceConfig
	Knowledge KnowledgeConfig
	Diagnosis DiagnosisConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled           bool
	Host              string
	Port              int
	Password          string
	DB                int
	ReportTTLMinutes  int
	EmbeddingTTLHours int
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
	VectorDim      int
}

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
}

type EvidenceConfig struct {
	Enabled    bool
	TopK       int
	TimeoutSec int
}

type KnowledgeConfig struct {
	Dir            string
	CriticalStates []string
	AnomalyStates  []string
}

type DiagnosisConfig struct {
	ReviewConfidenceThreshold float64
	NarrativeEnabled          bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/biomed-agent")

	viper.SetEnvPrefix("BIOMED_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/biomedagent.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.reportTTLMinutes", 60)
	viper.SetDefault("redis.embeddingTTLHours", 24)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "service_manuals")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-large")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 30)

	viper.SetDefault("evidence.enabled", true)
	viper.SetDefault("evidence.topK", 5)
	viper.SetDefault("evidence.timeoutSec", 10)

	viper.SetDefault("knowledge.dir", "./data/equipment")
	viper.SetDefault("knowledge.criticalStates", []string{"missing", "shorted", "open_circuit"})
	viper.SetDefault("knowledge.anomalyStates", []string{
		"under_voltage", "over_voltage", "out_of_spec_low", "out_of_spec_high",
		"degraded", "noisy", "intermittent", "failed",
	})

	viper.SetDefault("diagnosis.reviewConfidenceThreshold", 0.7)
	viper.SetDefault("diagnosis.narrativeEnabled", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
