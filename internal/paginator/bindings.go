package paginator

import "fmt"

// ControlAction is a logical navigation action a user can trigger on a
// session. Exactly five exist.
type ControlAction string

const (
	ActionFirst    ControlAction = "first"
	ActionPrevious ControlAction = "previous"
	ActionStop     ControlAction = "stop"
	ActionNext     ControlAction = "next"
	ActionLast     ControlAction = "last"
)

// BindingKind identifies the input transport a binding set recognizes.
type BindingKind string

const (
	// BindingReactions resolves emoji reaction tokens.
	BindingReactions BindingKind = "reactions"

	// BindingButtons resolves message component custom IDs.
	BindingButtons BindingKind = "buttons"
)

// BindingSet is the fixed mapping from input tokens to the five logical
// control actions. Constructed once per session and read-only
// thereafter. Reaction- and button-driven sessions use different
// implementations behind the same contract; session logic never
// branches on the kind.
type BindingSet interface {
	// Resolve maps a raw input token to a control action. Tokens the
	// set does not recognize produce a CAPABILITY_ERROR.
	Resolve(token string) (ControlAction, error)

	// Tokens returns the input tokens in control order: first,
	// previous, stop, next, last. The collector attaches these to the
	// rendered message.
	Tokens() []string

	// Kind identifies which input transport this set recognizes.
	Kind() BindingKind
}

// Default reaction controls. These are the emoji API names discordgo
// reports for reaction events.
const (
	EmojiFirst    = "⏮️"
	EmojiPrevious = "◀️"
	EmojiStop     = "⏹️"
	EmojiNext     = "▶️"
	EmojiLast     = "⏭️"
)

// EmojiBindings maps reaction emoji to control actions.
type EmojiBindings struct {
	first    string
	previous string
	stop     string
	next     string
	last     string
}

// NewEmojiBindings returns the default reaction binding set.
func NewEmojiBindings() *EmojiBindings {
	return &EmojiBindings{
		first:    EmojiFirst,
		previous: EmojiPrevious,
		stop:     EmojiStop,
		next:     EmojiNext,
		last:     EmojiLast,
	}
}

// NewCustomEmojiBindings returns a reaction binding set with
// caller-chosen emoji. All five must be non-empty and distinct.
func NewCustomEmojiBindings(first, previous, stop, next, last string) (*EmojiBindings, error) {
	tokens := []string{first, previous, stop, next, last}
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t == "" {
			return nil, ErrInvalidInput("emoji binding tokens must be non-empty", nil)
		}
		if seen[t] {
			return nil, ErrInvalidInput(fmt.Sprintf("duplicate emoji binding token %q", t), nil)
		}
		seen[t] = true
	}
	return &EmojiBindings{first: first, previous: previous, stop: stop, next: next, last: last}, nil
}

// Resolve implements BindingSet.
func (b *EmojiBindings) Resolve(token string) (ControlAction, error) {
	switch token {
	case b.first:
		return ActionFirst, nil
	case b.previous:
		return ActionPrevious, nil
	case b.stop:
		return ActionStop, nil
	case b.next:
		return ActionNext, nil
	case b.last:
		return ActionLast, nil
	default:
		return "", ErrCapability(fmt.Sprintf("reaction session does not recognize control token %q", token))
	}
}

// Tokens implements BindingSet.
func (b *EmojiBindings) Tokens() []string {
	return []string{b.first, b.previous, b.stop, b.next, b.last}
}

// Kind implements BindingSet.
func (b *EmojiBindings) Kind() BindingKind {
	return BindingReactions
}

// Default button custom IDs.
const (
	ButtonFirst    = "paginator_first"
	ButtonPrevious = "paginator_previous"
	ButtonStop     = "paginator_stop"
	ButtonNext     = "paginator_next"
	ButtonLast     = "paginator_last"
)

// ButtonBindings maps message component custom IDs to control actions.
// A button-capable session uses this set behind the same RegisterControl
// contract as a reaction session; no session logic changes.
type ButtonBindings struct{}

// NewButtonBindings returns the default button binding set.
func NewButtonBindings() *ButtonBindings {
	return &ButtonBindings{}
}

// Resolve implements BindingSet.
func (b *ButtonBindings) Resolve(token string) (ControlAction, error) {
	switch token {
	case ButtonFirst:
		return ActionFirst, nil
	case ButtonPrevious:
		return ActionPrevious, nil
	case ButtonStop:
		return ActionStop, nil
	case ButtonNext:
		return ActionNext, nil
	case ButtonLast:
		return ActionLast, nil
	default:
		return "", ErrCapability(fmt.Sprintf("button session does not recognize control token %q", token))
	}
}

// Tokens implements BindingSet.
func (b *ButtonBindings) Tokens() []string {
	return []string{ButtonFirst, ButtonPrevious, ButtonStop, ButtonNext, ButtonLast}
}

// Kind implements BindingSet.
func (b *ButtonBindings) Kind() BindingKind {
	return BindingButtons
}
