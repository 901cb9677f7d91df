package conversation

// Span is a character offset range into the raw utterance an Entity was
// extracted from.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entity is a piece of structured meaning extracted from an utterance,
// either by the main classifier's NER or by the tokenization service's
// auxiliary spaCy pass (spec.md §3).
type Entity struct {
	Name       string         `json:"name"`
	Value      string         `json:"value"`
	RawText    string         `json:"rawText"`
	Span       Span           `json:"span"`
	Resolution map[string]any `json:"resolution,omitempty"`
}

// Resolver is a discrete meaning label produced by a global or skill-local
// resolver classifier (e.g. affirmation/denial).
type Resolver struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SlotValue records what an action slot was ultimately filled with.
type SlotValue struct {
	Entity   string `json:"entity"`
	Value    string `json:"value"`
	IsFilled bool   `json:"isFilled"`
}

// Classification is the chosen intent for a turn.
type Classification struct {
	Domain     string  `json:"domain"`
	Skill      string  `json:"skill"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Intent renders the classifier-style "{skill}.{action}" intent string.
func (c Classification) Intent() string {
	return c.Skill + "." + c.Action
}

// ContextName renders the "{domain}.{skill}" active-context name.
func (c Classification) ContextName() string {
	return c.Domain + "." + c.Skill
}

// NLUResult is the artifact passed to the Brain executor and returned to
// the Dispatcher's caller (spec.md §3).
type NLUResult struct {
	Utterance string `json:"utterance"`

	CurrentEntities []Entity `json:"currentEntities"`
	Entities        []Entity `json:"entities"`

	CurrentResolvers []Resolver `json:"currentResolvers"`
	Resolvers        []Resolver `json:"resolvers"`

	Slots map[string]SlotValue `json:"slots,omitempty"`

	ConfigDataFilePath string `json:"configDataFilePath"`

	// Answers holds lazy dialog answers the classifier produced for
	// "dialog" action types; opaque to the core.
	Answers []string `json:"answers,omitempty"`

	Classification Classification `json:"classification"`

	ProcessingTime    float64 `json:"processingTime,omitempty"`
	NLUProcessingTime float64 `json:"nluProcessingTime,omitempty"`

	// Message carries a human-readable outcome for the non-NLUResult
	// return shapes Process can produce ("Intent not found").
	Message string `json:"message,omitempty"`
}
