package agent

import "context"

// Agent identifiers. Each maps to one analysis capability and one
// analysis_results row per document.
const (
	AgentLanguage  = "language"
	AgentSlang     = "slang_normalizer"
	AgentTopic     = "topic"
	AgentEntities  = "entities"
	AgentSentiment = "sentiment"
	AgentEmotion   = "emotion"
	AgentBias      = "bias"
	AgentSummary   = "summary"
	AgentQuality   = "quality"
)

// Well-known payload keys consumed by the pipeline.
const (
	KeyLanguage       = "language"
	KeyNormalizedText = "normalized_text"
	KeySummary        = "summary"
)

// inferenceAgent implements Agent on top of the shared analysis API,
// with the agent ID doubling as the task name.
type inferenceAgent struct {
	id     string
	client *InferenceClient
}

func (a *inferenceAgent) ID() string {
	return a.id
}

func (a *inferenceAgent) ModelVersion() string {
	return a.client.Model()
}

func (a *inferenceAgent) Process(ctx context.Context, text string, metadata map[string]interface{}) (map[string]interface{}, error) {
	return a.client.Analyze(ctx, a.id, text, metadata)
}

// Suite holds the fixed set of analysis agents wired into the pipeline.
// Language and Slang run as pre-processing; Topic, Entities, Sentiment and
// Emotion run in the parallel stage; Bias, Summary and Quality run
// sequentially afterwards.
type Suite struct {
	Language  Agent
	Slang     Agent
	Topic     Agent
	Entities  Agent
	Sentiment Agent
	Emotion   Agent
	Bias      Agent
	Summary   Agent
	Quality   Agent
}

// NewSuite creates the full agent suite backed by one inference client.
func NewSuite(client *InferenceClient) *Suite {
	return &Suite{
		Language:  &inferenceAgent{id: AgentLanguage, client: client},
		Slang:     &inferenceAgent{id: AgentSlang, client: client},
		Topic:     &inferenceAgent{id: AgentTopic, client: client},
		Entities:  &inferenceAgent{id: AgentEntities, client: client},
		Sentiment: &inferenceAgent{id: AgentSentiment, client: client},
		Emotion:   &inferenceAgent{id: AgentEmotion, client: client},
		Bias:      &inferenceAgent{id: AgentBias, client: client},
		Summary:   &inferenceAgent{id: AgentSummary, client: client},
		Quality:   &inferenceAgent{id: AgentQuality, client: client},
	}
}
