package config

// Gateway providers.
const (
	GatewayDefault = "gateway"
	GatewayCanned  = "canned"
)

const (
	defaultGatewayProvider = GatewayDefault
	defaultGatewayURL      = "http://localhost:11434"
	defaultGatewayModel    = "llama3.2"

	defaultAPIListen = ":8081"
	defaultRateLimit = 2.0
	defaultRateBurst = 10

	defaultMaxRecoveries = 8

	defaultClientAPITarget = "http://localhost:8081"
	defaultClientUser      = "local"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingTarget     = "http://localhost:11434"

	defaultKafkaTopic = "haven.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Gateway: GatewayConfig{
			Provider: defaultGatewayProvider,
			URL:      defaultGatewayURL,
			Model:    defaultGatewayModel,
		},
		API: APIConfig{
			Listen:    defaultAPIListen,
			RateLimit: defaultRateLimit,
			RateBurst: defaultRateBurst,
		},
		Decoder: DecoderConfig{
			MaxRecoveries: defaultMaxRecoveries,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
			User:      defaultClientUser,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Kafka: KafkaConfig{
			Topic: defaultKafkaTopic,
		},
	}
}
