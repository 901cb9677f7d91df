package conversation

// Slot is a named parameter an action declares as mandatory, filled by
// extracted entities over one or more turns (spec.md §3).
type Slot struct {
	Name            string   `json:"name"`
	ExpectedEntity  string   `json:"expectedEntity"`
	PickedQuestion  string   `json:"pickedQuestion"`
	Suggestions     []string `json:"suggestions"`
	IsFilled        bool     `json:"isFilled"`
	Value           string   `json:"value"`
}

// NextAction describes the action an Action Loop should rotate to once the
// current one finishes (spec.md §4.6).
type NextAction struct {
	Name string `json:"name"`
	Loop bool   `json:"loop"`
}

// ActiveContext is the conversation's short-term memory: at most one exists
// at a time (spec.md §3, invariant 1).
type ActiveContext struct {
	Lang string `json:"lang"`

	Domain     string `json:"domain"`
	Skill      string `json:"skill"`
	ActionName string `json:"actionName"`

	// OriginalUtterance is the utterance that first activated this
	// context; slot filling completion and action loop restarts or
	// out-of-topic turns replay it.
	OriginalUtterance string `json:"originalUtterance"`

	ConfigDataFilePath string `json:"configDataFilePath"`

	Slots map[string]*Slot `json:"slots"`

	// SlotOrder preserves declaration order so GetNotFilledSlot is
	// deterministic; Go maps don't guarantee iteration order.
	SlotOrder []string `json:"slotOrder"`

	IsInActionLoop bool        `json:"isInActionLoop"`
	NextAction     *NextAction `json:"nextAction,omitempty"`

	Entities        []Entity `json:"entities"`
	CurrentEntities []Entity `json:"currentEntities"`
}

// Name renders the "{domain}.{skill}" context identity used to decide
// whether a fresh classification continues this context or replaces it.
func (c *ActiveContext) Name() string {
	if c == nil {
		return ""
	}
	return c.Domain + "." + c.Skill
}

// Intent renders the "{skill}.{action}" intent string.
func (c *ActiveContext) Intent() string {
	if c == nil {
		return ""
	}
	return c.Skill + "." + c.ActionName
}

// NewActiveContext seeds a context from a fresh classification result, with
// no slots yet populated (the caller fills Slots/SlotOrder separately when
// slot filling begins).
func NewActiveContext(lang string, classification Classification, utterance, configDataFilePath string) *ActiveContext {
	return &ActiveContext{
		Lang:               lang,
		Domain:             classification.Domain,
		Skill:              classification.Skill,
		ActionName:         classification.Action,
		OriginalUtterance:  utterance,
		ConfigDataFilePath: configDataFilePath,
		Slots:              make(map[string]*Slot),
	}
}
