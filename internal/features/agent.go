package features

import (
	"context"
	"sync"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

// DefaultAgentMemory is how many earlier exchanges the agent replays.
const DefaultAgentMemory = 5

type AgentResult struct {
	Answer            string   `json:"answer"`
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"key_points"`
	ActionItems       []string `json:"action_items"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// Exchange is one question and the answer the agent gave.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Agent answers open-ended requests and remembers its recent exchanges.
type Agent struct {
	core *Core

	mu        sync.Mutex
	memory    []Exchange
	maxMemory int
}

func NewAgent(core *Core, maxMemory int) *Agent {
	if maxMemory <= 0 {
		maxMemory = DefaultAgentMemory
	}

	return &Agent{core: core, maxMemory: maxMemory}
}

func (a *Agent) Run(ctx context.Context, text string) (*Outcome[AgentResult], error) {
	a.mu.Lock()
	memory := append([]Exchange(nil), a.memory...)
	a.mu.Unlock()

	messages := make([]providers.Message, 0, 2+2*len(memory))
	messages = append(messages, system(agentPrompt))

	for _, ex := range memory {
		messages = append(messages, user(ex.Question), assistant(ex.Answer))
	}

	messages = append(messages, user(text))

	var variant string
	for _, ex := range memory {
		variant += ex.Question + "\x00" + ex.Answer + "\x00"
	}

	out, err := run(ctx, a.core, job[AgentResult]{
		feature:     "agent",
		text:        text,
		limit:       AgentLimit,
		variant:     variant,
		messages:    messages,
		maxTokens:   4096,
		temperature: 0.7,
		parse: func(x *extraction) AgentResult {
			return AgentResult{
				Answer:            x.str("answer"),
				Summary:           x.str("summary"),
				KeyPoints:         x.strs("key_points"),
				ActionItems:       x.strs("action_items"),
				FollowUpQuestions: x.strs("follow_up_questions"),
			}
		},
		degrade: func(reply string) AgentResult {
			return AgentResult{
				Answer:            reply,
				KeyPoints:         []string{},
				ActionItems:       []string{},
				FollowUpQuestions: []string{},
			}
		},
	})
	if err != nil {
		return nil, err
	}

	a.remember(Exchange{Question: text, Answer: out.Value.Answer})

	return out, nil
}

func (a *Agent) remember(ex Exchange) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.memory = append(a.memory, ex)
	if len(a.memory) > a.maxMemory {
		a.memory = append([]Exchange(nil), a.memory[len(a.memory)-a.maxMemory:]...)
	}
}

// Memory returns the remembered exchanges, oldest first.
func (a *Agent) Memory() []Exchange {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]Exchange(nil), a.memory...)
}

func (a *Agent) Reset() {
	a.mu.Lock()
	a.memory = nil
	a.mu.Unlock()
}
