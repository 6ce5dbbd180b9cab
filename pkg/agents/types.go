package agents

// Defaults is the print job form prefill the widget works with. The intake and
// confirmation agents both answer in this shape.
type Defaults struct {
	DefaultName  string `json:"defaultName" yaml:"defaultName"`
	DefaultEmail string `json:"defaultEmail" yaml:"defaultEmail"`
	DefaultGrams string `json:"defaultGrams" yaml:"defaultGrams"`
	DefaultTime  string `json:"defaultTime" yaml:"defaultTime"`
	DefaultPaid  bool   `json:"defaultPaid" yaml:"defaultPaid"`
}

// IsZero reports whether no field has been filled in yet.
func (d Defaults) IsZero() bool {
	return d == Defaults{}
}

// OrderForm is the submitted print job as extracted from the order.submit action.
type OrderForm struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Grams string `json:"grams" yaml:"grams"`
	Time  string `json:"time" yaml:"time"`
	Paid  bool   `json:"paid" yaml:"paid"`
}
