package turns

// Standard keys used in Block.Payload maps
const (
	PayloadKeyText = "text"
	// PayloadKeyJSON carries the structured output an agent produced, as a JSON string
	PayloadKeyJSON    = "json"
	PayloadKeyRefusal = "refusal"
)

// Standard keys used in Block.Metadata maps
const (
	MetaKeyAgent = "agent"
	MetaKeyStage = "stage"
	MetaKeyModel = "model"
)
