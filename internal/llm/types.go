package llm

// upstream generation failure, distinct from input or validation errors
type GenerationError struct {
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	return e.Message
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// one completed generation
type Result struct {
	Text  string
	Model string
	Usage Usage
}
