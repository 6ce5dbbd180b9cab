package settings

import (
	"net/http"
	"time"

	"github.com/huandu/go-clone"
	"gopkg.in/yaml.v3"
)

type ClientSettings struct {
	Timeout        *time.Duration `yaml:"-" mapstructure:"timeout"`
	TimeoutSeconds *int           `yaml:"timeout_second,omitempty" mapstructure:"timeout_second"`
	Organization   *string        `yaml:"organization,omitempty" mapstructure:"organization"`
	UserAgent      *string        `yaml:"user_agent,omitempty" mapstructure:"user_agent"`
	// AllowLocalBaseURL lets the provider base URL point at http or local network hosts.
	AllowLocalBaseURL bool         `yaml:"allow_local_base_url,omitempty" mapstructure:"allow_local_base_url"`
	HTTPClient        *http.Client `yaml:"-" json:"-" mapstructure:"-"`
}

// UnmarshalYAML overrides YAML parsing to convert time.duration from int
func (cs *ClientSettings) UnmarshalYAML(value *yaml.Node) error {
	type Alias ClientSettings
	aux := &struct {
		Timeout *int `yaml:"timeout,omitempty"`
		*Alias  `yaml:",inline"`
	}{
		Alias: (*Alias)(cs),
	}
	if err := value.Decode(aux); err != nil {
		return err
	}
	if aux.Timeout != nil {
		t := time.Duration(*aux.Timeout) * time.Second
		cs.Timeout = &t
		cs.TimeoutSeconds = aux.Timeout
	} else if cs.TimeoutSeconds != nil {
		t := time.Duration(*cs.TimeoutSeconds) * time.Second
		cs.Timeout = &t
	}
	return nil
}

func (cs *ClientSettings) Clone() *ClientSettings {
	return clone.Clone(cs).(*ClientSettings)
}

func NewClientSettings() *ClientSettings {
	defaultTimeout := 60 * time.Second
	return &ClientSettings{
		Timeout: &defaultTimeout,
		TimeoutSeconds: func() *int {
			i := int(defaultTimeout.Seconds())
			return &i
		}(),
	}
}
