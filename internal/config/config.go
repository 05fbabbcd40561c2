package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPath          = "config/config.toml"
	DefaultSystemPrompt  = "You are a helpful assistant tasked with finding and explaining relevant information about Supply chain. Use the available tools to answer questions about suppliers."
	DefaultAuthorityURL  = "https://login.microsoftonline.com"
	DefaultLLMScope      = "https://cognitiveservices.azure.com/.default"
	DefaultVectorIndex   = "supply_chain"
	DefaultAPIVersion    = "2024-08-01-preview"
	DefaultMaxTurns      = 5
	DefaultCapacityMin   = 1000
	DefaultCapacityMax   = 50000
	DefaultEmbeddingDims = 1536
)

type AzureConfig struct {
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AuthorityURL string `toml:"authority_url"`
}

// TokenURL is the v2.0 token endpoint of the configured tenant.
func (a AzureConfig) TokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(a.AuthorityURL, "/"), a.TenantID)
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	// Scope requested from Azure AD for the graph database. Defaults to
	// api://<client_id>/.default.
	Scope string `toml:"scope"`
}

type LLMConfig struct {
	Provider       string  `toml:"provider"`
	Endpoint       string  `toml:"endpoint"`
	APIVersion     string  `toml:"api_version"`
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	APIKey         string  `toml:"api_key"`
	Scope          string  `toml:"scope"`
	Temperature    float32 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
}

type CatalogConfig struct {
	NodesCSV            string   `toml:"nodes_csv"`
	RelationshipsCSV    string   `toml:"relationships_csv"`
	CapacityMin         int      `toml:"capacity_min"`
	CapacityMax         int      `toml:"capacity_max"`
	RelationTypes       []string `toml:"relation_types"`
	VectorIndex         string   `toml:"vector_index"`
	EmbeddingDimensions int      `toml:"embedding_dimensions"`
}

type AgentConfig struct {
	MaxTurns     int    `toml:"max_turns"`
	SystemPrompt string `toml:"system_prompt"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type LogConfig struct {
	Mode string `toml:"mode"`
}

type Config struct {
	Azure   AzureConfig   `toml:"azure"`
	Neo4j   Neo4jConfig   `toml:"neo4j"`
	LLM     LLMConfig     `toml:"llm"`
	Catalog CatalogConfig `toml:"catalog"`
	Agent   AgentConfig   `toml:"agent"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadOrDefault reads path when it exists and falls back to an empty config
// otherwise. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Azure.AuthorityURL == "" {
		c.Azure.AuthorityURL = DefaultAuthorityURL
	}
	if c.Neo4j.Database == "" {
		c.Neo4j.Database = "neo4j"
	}
	if c.Neo4j.Scope == "" && c.Azure.ClientID != "" {
		c.Neo4j.Scope = fmt.Sprintf("api://%s/.default", c.Azure.ClientID)
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "azure"
	}
	if c.LLM.APIVersion == "" {
		c.LLM.APIVersion = DefaultAPIVersion
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.LLM.Scope == "" {
		c.LLM.Scope = DefaultLLMScope
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.Catalog.CapacityMin == 0 {
		c.Catalog.CapacityMin = DefaultCapacityMin
	}
	if c.Catalog.CapacityMax == 0 {
		c.Catalog.CapacityMax = DefaultCapacityMax
	}
	if c.Catalog.VectorIndex == "" {
		c.Catalog.VectorIndex = DefaultVectorIndex
	}
	if c.Catalog.EmbeddingDimensions == 0 {
		c.Catalog.EmbeddingDimensions = DefaultEmbeddingDims
	}
	if c.Agent.MaxTurns == 0 {
		c.Agent.MaxTurns = DefaultMaxTurns
	}
	if c.Agent.SystemPrompt == "" {
		c.Agent.SystemPrompt = DefaultSystemPrompt
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	setString(&c.Azure.TenantID, "AZURE_TENANT_ID")
	setString(&c.Azure.ClientID, "AZURE_CLIENT_ID")
	setString(&c.Azure.ClientSecret, "AZURE_CLIENT_SECRET")
	setString(&c.Azure.AuthorityURL, "AZURE_AUTHORITY_URL")

	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.Database, "NEO4J_DATABASE")
	setString(&c.Neo4j.Scope, "NEO4J_SCOPE")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.Endpoint, "LLM_ENDPOINT")
	setString(&c.LLM.APIVersion, "LLM_API_VERSION")
	setString(&c.LLM.Model, "LLM_MODEL")
	setString(&c.LLM.EmbeddingModel, "LLM_EMBEDDING_MODEL")
	setString(&c.LLM.APIKey, "LLM_API_KEY")
	setString(&c.LLM.Scope, "LLM_SCOPE")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			c.LLM.Temperature = float32(f)
		}
	}
	setInt(&c.LLM.MaxTokens, "LLM_MAX_TOKENS")

	setString(&c.Catalog.NodesCSV, "CATALOG_NODES_CSV")
	setString(&c.Catalog.RelationshipsCSV, "CATALOG_RELATIONSHIPS_CSV")

	setInt(&c.Agent.MaxTurns, "AGENT_MAX_TURNS")
	setString(&c.Server.Port, "PORT")
	setString(&c.Log.Mode, "LOG_MODE")
}

// Validate reports settings without which nothing can talk to Azure or Neo4j.
func (c *Config) Validate() error {
	var missing []string
	if c.Azure.TenantID == "" {
		missing = append(missing, "azure.tenant_id")
	}
	if c.Azure.ClientID == "" {
		missing = append(missing, "azure.client_id")
	}
	if c.Azure.ClientSecret == "" {
		missing = append(missing, "azure.client_secret")
	}
	if c.Neo4j.URI == "" {
		missing = append(missing, "neo4j.uri")
	}
	if c.Catalog.CapacityMin > c.Catalog.CapacityMax {
		return fmt.Errorf("catalog.capacity_min (%d) exceeds catalog.capacity_max (%d)", c.Catalog.CapacityMin, c.Catalog.CapacityMax)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
