package llm

// Template is the prompt shared by every task of a run: a fixed system turn
// and the sampling parameters. It is built once and only read afterwards;
// Build derives a per-task Request without touching the template.
type Template struct {
	model    string
	messages []Message

	temperature      *float64
	topP             *float64
	n                *int
	stream           *bool
	maxTokens        *int
	presencePenalty  *float64
	frequencyPenalty *float64
}

// TemplateOption configures a Template.
type TemplateOption func(*Template)

// WithTemperature sets the sampling temperature.
func WithTemperature(v float64) TemplateOption {
	return func(t *Template) { t.temperature = &v }
}

// WithTopP sets nucleus sampling probability mass.
func WithTopP(v float64) TemplateOption {
	return func(t *Template) { t.topP = &v }
}

// WithN sets the number of choices requested. Only the first choice is ever
// consumed.
func WithN(v int) TemplateOption {
	return func(t *Template) { t.n = &v }
}

// WithStream requests a streamed (server-sent events) response.
func WithStream(v bool) TemplateOption {
	return func(t *Template) { t.stream = &v }
}

// WithMaxTokens caps the length of the generated reply.
func WithMaxTokens(v int) TemplateOption {
	return func(t *Template) { t.maxTokens = &v }
}

// WithPresencePenalty sets the presence penalty.
func WithPresencePenalty(v float64) TemplateOption {
	return func(t *Template) { t.presencePenalty = &v }
}

// WithFrequencyPenalty sets the frequency penalty.
func WithFrequencyPenalty(v float64) TemplateOption {
	return func(t *Template) { t.frequencyPenalty = &v }
}

// NewTemplate creates a template whose conversation starts with the given
// system instruction. An empty instruction produces no system turn.
func NewTemplate(model, system string, opts ...TemplateOption) *Template {
	t := &Template{model: model}
	if system != "" {
		t.messages = []Message{{Role: RoleSystem, Content: system}}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Model returns the model identifier.
func (t *Template) Model() string {
	return t.model
}

// Messages returns a copy of the template's message list.
func (t *Template) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Build returns a new Request made of the template's messages followed by a
// user turn holding text. Sampling parameters are copied by value so the
// request can be modified freely.
func (t *Template) Build(text string) *Request {
	messages := make([]Message, len(t.messages), len(t.messages)+1)
	copy(messages, t.messages)
	messages = append(messages, Message{Role: RoleUser, Content: text})

	return &Request{
		Model:            t.model,
		Messages:         messages,
		Temperature:      clonePtr(t.temperature),
		TopP:             clonePtr(t.topP),
		N:                clonePtr(t.n),
		Stream:           clonePtr(t.stream),
		MaxTokens:        clonePtr(t.maxTokens),
		PresencePenalty:  clonePtr(t.presencePenalty),
		FrequencyPenalty: clonePtr(t.frequencyPenalty),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
