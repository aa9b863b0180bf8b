package file

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/tamil-acog/aganitha-chatbot/internal/core/domain"
	"github.com/tamil-acog/aganitha-chatbot/internal/logger"
)

// DefaultEnvFile is the dotenv file read from the working directory.
const DefaultEnvFile = ".env"

// Environment variables holding secrets and connection details.
const (
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvMilvusURI         = "MILVUS_URI"
	EnvMilvusUser        = "MILVUS_USER"
	EnvMilvusPassword    = "MILVUS_PASSWORD"
	EnvMilvusToken       = "MILVUS_TOKEN"
	EnvGoogleCredentials = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvOllamaHost        = "OLLAMA_HOST"
)

// Load reads the config file at path (if any), overlays secrets from the
// environment and applies defaults. An empty path yields defaults.
// The result is not validated; callers apply flag overrides first.
func Load(path string) (domain.PipelineConfig, error) {
	var cfg domain.PipelineConfig

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return domain.PipelineConfig{}, err
		}
	}

	if err := LoadDotEnv(DefaultEnvFile); err != nil {
		return domain.PipelineConfig{}, err
	}
	ApplyEnv(&cfg, os.Getenv)
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadDotEnv seeds the process environment from the given dotenv files.
// Missing files are ignored and existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return domain.ConfigError("load %s: %v", p, err)
		}
		logger.Debug("loaded environment from %s", p)
	}
	return nil
}

// ApplyEnv overlays environment values onto cfg. Secrets always come from
// the environment; non-secret values only fill fields the file left empty.
func ApplyEnv(cfg *domain.PipelineConfig, getenv func(string) string) {
	cfg.Embedding.APIKey = getenv(EnvOpenAIKey)
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Backend == domain.EmbeddingOllama {
		cfg.Embedding.BaseURL = getenv(EnvOllamaHost)
	}

	m := &cfg.Index.Milvus
	if uri := getenv(EnvMilvusURI); uri != "" {
		m.Address = uri
	}
	m.Username = getenv(EnvMilvusUser)
	m.Password = getenv(EnvMilvusPassword)
	m.Token = getenv(EnvMilvusToken)

	if cfg.Google.ServiceAccountFile == "" {
		cfg.Google.ServiceAccountFile = getenv(EnvGoogleCredentials)
	}
}

func decodeFile(path string, cfg *domain.PipelineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigError("read config %s: %v", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return domain.ConfigError("parse config %s: %v", path, err)
		}
	case ".yml", ".yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return domain.ConfigError("parse config %s: %v", path, err)
		}
	default:
		return domain.ConfigError("config %s: unsupported extension %q (want .toml, .yml or .yaml)", path, ext)
	}

	logger.Debug("loaded config from %s", path)
	return nil
}
