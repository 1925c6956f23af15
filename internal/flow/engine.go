// Package flow implements the per-conversation finite-state machine.
// Flows are declared as data: named sets of states, each carrying an
// ordered transition list evaluated first-match-wins.
package flow

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/text"
)

// ConditionKind tags the variant of a transition condition.
type ConditionKind int

const (
	condIntent ConditionKind = iota
	condKeyword
	condPattern
	condContext
	condAlways
)

// Condition guards a transition. Exactly one variant is populated,
// selected by Kind.
type Condition struct {
	Kind      ConditionKind
	Intent    model.Intent
	Keywords  []string
	Pattern   *regexp.Regexp
	CtxKey    string
	Predicate func(v any) bool
}

// WhenIntent matches when the classified intent equals the given one.
func WhenIntent(i model.Intent) Condition {
	return Condition{Kind: condIntent, Intent: i}
}

// WhenKeyword matches when any keyword occurs in the text.
func WhenKeyword(keywords ...string) Condition {
	return Condition{Kind: condKeyword, Keywords: keywords}
}

// WhenPattern matches when the regular expression matches the text.
func WhenPattern(re *regexp.Regexp) Condition {
	return Condition{Kind: condPattern, Pattern: re}
}

// WhenContext matches when the predicate holds for the conversation
// context value stored under key.
func WhenContext(key string, pred func(v any) bool) Condition {
	return Condition{Kind: condContext, CtxKey: key, Predicate: pred}
}

// Always matches unconditionally. It must be the last transition of a
// state's list.
func Always() Condition {
	return Condition{Kind: condAlways}
}

func (c Condition) holds(input Input, conv *model.Conversation) bool {
	switch c.Kind {
	case condIntent:
		return input.Intent == c.Intent
	case condKeyword:
		for _, kw := range c.Keywords {
			if text.ContainsWord(input.NormalizedText, kw) {
				return true
			}
		}
		return false
	case condPattern:
		return c.Pattern.MatchString(input.NormalizedText)
	case condContext:
		return c.Predicate(conv.Context[c.CtxKey])
	case condAlways:
		return true
	default:
		return false
	}
}

// Transition pairs a condition with its target state.
type Transition struct {
	Condition Condition
	Target    string
}

// State declares one step of a flow: what the caller should render on
// entry, and the ordered transitions out of it.
type State struct {
	Action      string
	Prompt      string
	Terminal    bool
	Transitions []Transition
}

// Definition declares a complete flow.
type Definition struct {
	Name    model.Flow
	Initial string
	States  map[string]*State
}

// Input is the evaluated view of one inbound message.
type Input struct {
	Text           string
	NormalizedText string
	Intent         model.Intent
}

// NewInput normalizes message text for condition evaluation.
func NewInput(rawText string, intent model.Intent) Input {
	return Input{
		Text:           rawText,
		NormalizedText: strings.ToLower(strings.TrimSpace(rawText)),
		Intent:         intent,
	}
}

// Decision tells the caller where the conversation ended up and what
// to render next.
type Decision struct {
	Flow   model.Flow
	Step   string
	Action string
	Prompt string
}

// Options carries the thresholds the engine needs from configuration.
type Options struct {
	FlowStaleAfter   time.Duration
	NewUserMaxAge    time.Duration
	NewUserMaxEvents int
}

// Engine drives conversations through declared flows. Engine itself is
// stateless; all per-user state lives on the Conversation, which the
// engine mutates in place.
type Engine struct {
	logger *slog.Logger
	flows  map[model.Flow]*Definition
	opts   Options
}

// NewEngine creates a flow engine over the built-in flow definitions.
func NewEngine(logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		logger: logger.With("component", "flow_engine"),
		flows:  defaultFlows(),
		opts:   opts,
	}
}

// Determine picks or continues the conversation's flow for one inbound
// message and returns the resulting decision. Precedence:
//
//  1. a new user is forced into the onboarding flow regardless of text
//  2. an explicit flow-switch trigger interrupts the current flow
//  3. an active, recently used flow continues
//  4. otherwise the classified intent initiates its default flow
func (e *Engine) Determine(user model.User, conv *model.Conversation, input Input, now time.Time) Decision {
	defer func() {
		conv.LastActivityAt = now
		conv.Ended = false
	}()

	if e.isNewUser(user, now) {
		if conv.CurrentFlow == model.FlowOnboarding && conv.CurrentStep != "" {
			return e.continueFlow(conv, input, now)
		}
		return e.initiate(conv, model.FlowOnboarding, now)
	}

	if target, ok := e.switchTarget(input); ok && target != conv.CurrentFlow {
		if conv.CurrentFlow != "" {
			conv.InterruptedFlows = append(conv.InterruptedFlows, model.FlowRef{
				Flow: conv.CurrentFlow,
				Step: conv.CurrentStep,
			})
			e.logger.Debug("interrupting flow",
				"user_id", conv.UserID,
				"interrupted", conv.CurrentFlow,
				"requested", target)
		}
		return e.initiate(conv, target, now)
	}

	if conv.CurrentFlow != "" && now.Sub(conv.LastActivityAt) <= e.opts.FlowStaleAfter {
		return e.continueFlow(conv, input, now)
	}

	target, ok := intentDefaults[input.Intent]
	if !ok {
		target = model.FlowPropertySearch
	}
	// The initiating message is also the flow's first input: a message
	// that already carries criteria should search, not prompt for the
	// criteria again.
	e.initiate(conv, target, now)
	return e.continueFlow(conv, input, now)
}

// Continue evaluates the current state's transition list against the
// input and moves to the first matching target. When nothing matches,
// the state is unchanged.
func (e *Engine) Continue(conv *model.Conversation, input Input, now time.Time) Decision {
	return e.continueFlow(conv, input, now)
}

func (e *Engine) continueFlow(conv *model.Conversation, input Input, now time.Time) Decision {
	def, state, ok := e.lookup(conv.CurrentFlow, conv.CurrentStep)
	if !ok {
		e.logger.Warn("unknown flow or state, falling back to default search flow",
			"user_id", conv.UserID,
			"flow", conv.CurrentFlow,
			"step", conv.CurrentStep)
		return e.initiate(conv, model.FlowPropertySearch, now)
	}

	for _, tr := range state.Transitions {
		if !tr.Condition.holds(input, conv) {
			continue
		}
		if tr.Target != conv.CurrentStep {
			conv.StepHistory = append(conv.StepHistory, model.StepRecord{
				Flow:      def.Name,
				FromStep:  conv.CurrentStep,
				ToStep:    tr.Target,
				Timestamp: now,
			})
		}
		conv.CurrentStep = tr.Target
		break
	}

	return e.decisionFor(def, conv.CurrentStep)
}

// Resume pops the most recent interrupted entry matching flowName and
// restores it as current. It returns false when no matching entry is
// on the stack.
func (e *Engine) Resume(conv *model.Conversation, flowName model.Flow, now time.Time) (Decision, bool) {
	for i := len(conv.InterruptedFlows) - 1; i >= 0; i-- {
		ref := conv.InterruptedFlows[i]
		if ref.Flow != flowName {
			continue
		}
		conv.InterruptedFlows = append(conv.InterruptedFlows[:i], conv.InterruptedFlows[i+1:]...)

		def, _, ok := e.lookup(ref.Flow, ref.Step)
		if !ok {
			e.logger.Warn("interrupted flow no longer declared, restarting it",
				"user_id", conv.UserID, "flow", ref.Flow, "step", ref.Step)
			return e.initiate(conv, model.FlowPropertySearch, now), true
		}

		conv.CurrentFlow = ref.Flow
		conv.CurrentStep = ref.Step
		conv.LastActivityAt = now
		return e.decisionFor(def, ref.Step), true
	}
	return Decision{}, false
}

// Complete clears the active flow, records it as completed, and
// resumes the most recently interrupted flow if one is waiting.
func (e *Engine) Complete(conv *model.Conversation, now time.Time) (Decision, bool) {
	if conv.CurrentFlow == "" {
		return Decision{}, false
	}

	conv.CompletedFlows = append(conv.CompletedFlows, conv.CurrentFlow)
	conv.CurrentFlow = ""
	conv.CurrentStep = ""
	conv.LastActivityAt = now

	if n := len(conv.InterruptedFlows); n > 0 {
		ref := conv.InterruptedFlows[n-1]
		return e.Resume(conv, ref.Flow, now)
	}
	return Decision{}, false
}

// StateDef returns the declared state, for callers that need to check
// terminality or the entry action.
func (e *Engine) StateDef(flowName model.Flow, step string) (*State, bool) {
	_, state, ok := e.lookup(flowName, step)
	return state, ok
}

// Flows exposes the declared flow definitions, used by tests to
// enumerate every state.
func (e *Engine) Flows() map[model.Flow]*Definition {
	return e.flows
}

func (e *Engine) initiate(conv *model.Conversation, flowName model.Flow, now time.Time) Decision {
	def, ok := e.flows[flowName]
	if !ok {
		// A flow name with no definition is a configuration defect,
		// not a user error. Fall back to the search flow.
		e.logger.Warn("flow not declared, falling back to default search flow",
			"user_id", conv.UserID, "flow", flowName)
		def = e.flows[model.FlowPropertySearch]
	}

	conv.CurrentFlow = def.Name
	conv.CurrentStep = def.Initial
	conv.FlowHistory = append(conv.FlowHistory, model.FlowRef{Flow: def.Name, Step: def.Initial})
	conv.LastActivityAt = now

	return e.decisionFor(def, def.Initial)
}

func (e *Engine) lookup(flowName model.Flow, step string) (*Definition, *State, bool) {
	def, ok := e.flows[flowName]
	if !ok {
		return nil, nil, false
	}
	state, ok := def.States[step]
	if !ok {
		return nil, nil, false
	}
	return def, state, true
}

func (e *Engine) decisionFor(def *Definition, step string) Decision {
	state := def.States[step]
	return Decision{
		Flow:   def.Name,
		Step:   step,
		Action: state.Action,
		Prompt: state.Prompt,
	}
}

func (e *Engine) switchTarget(input Input) (model.Flow, bool) {
	for _, trigger := range switchTriggers {
		for _, kw := range trigger.keywords {
			if text.ContainsWord(input.NormalizedText, kw) {
				return trigger.flow, true
			}
		}
	}
	return "", false
}

// isNewUser applies the onboarding qualification: young account, few
// interactions, nothing learned yet.
func (e *Engine) isNewUser(user model.User, now time.Time) bool {
	return now.Sub(user.CreatedAt) < e.opts.NewUserMaxAge &&
		user.InteractionCount < e.opts.NewUserMaxEvents &&
		!user.HasPreferences
}
