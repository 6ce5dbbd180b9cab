package types

type ApiType string

// Every ApiType below speaks the OpenAI chat completions protocol and is served
// by the same engine with a different base URL.
const (
	ApiTypeOpenAI    ApiType = "openai"
	ApiTypeAnyScale  ApiType = "anyscale"
	ApiTypeFireworks ApiType = "fireworks"
)

// DefaultBaseURLs maps each ApiType to its public endpoint.
var DefaultBaseURLs = map[ApiType]string{
	ApiTypeOpenAI:    "https://api.openai.com/v1",
	ApiTypeAnyScale:  "https://api.endpoints.anyscale.com/v1",
	ApiTypeFireworks: "https://api.fireworks.ai/inference/v1",
}

// IsSupported reports whether t is one of the known OpenAI-compatible providers.
func (t ApiType) IsSupported() bool {
	_, ok := DefaultBaseURLs[t]
	return ok
}
