package codec

import (
	"fmt"
	"log/slog"
	"strings"
)

// Category groups recoverable import errors. Each category keeps its own
// continuation state for the length of one import.
type Category int

const (
	CategoryTableType Category = iota
	CategoryTableTypeField
	CategoryDataField
	CategoryDataType
	CategoryMacro
	CategoryReservedID
	CategoryColumn
)

var categoryNames = map[Category]string{
	CategoryTableType:      "table type",
	CategoryTableTypeField: "table type data field",
	CategoryDataField:      "data field",
	CategoryDataType:       "data type",
	CategoryMacro:          "macro",
	CategoryReservedID:     "reserved message ID",
	CategoryColumn:         "column",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Decision is a collaborator's answer to a recoverable error.
type Decision int

const (
	// Ignore skips this entity only; the next error in the category asks again.
	Ignore Decision = iota
	// IgnoreAll skips this entity and every later one in the category.
	IgnoreAll
	// Abort stops the import.
	Abort
)

func (d Decision) String() string {
	switch d {
	case Ignore:
		return "ignore"
	case IgnoreAll:
		return "ignore all"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// ParseDecision maps a configured name to a headless policy decision.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return Ignore, nil
	case "ignore-all", "ignore_all", "ignoreall", "skip":
		return IgnoreAll, nil
	case "abort", "stop", "":
		return Abort, nil
	}
	return Abort, fmt.Errorf("unknown error decision %q", s)
}

// DecideFunc is asked what to do with a recoverable error. It may block, for
// example on a human; the import resumes where it left off when it returns.
type DecideFunc func(category Category, message string) Decision

// AlwaysAbort stops on the first recoverable error.
func AlwaysAbort(Category, string) Decision { return Abort }

// AlwaysIgnoreAll skips every malformed entity.
func AlwaysIgnoreAll(Category, string) Decision { return IgnoreAll }

// Always returns a DecideFunc that gives d for every error.
func Always(d Decision) DecideFunc {
	return func(Category, string) Decision { return d }
}

// State is a category's continuation flag.
type State int

const (
	StateAsk State = iota
	StateSkipAll
	StateAbort
)

func (s State) String() string {
	switch s {
	case StateSkipAll:
		return "skip all"
	case StateAbort:
		return "abort"
	default:
		return "ask"
	}
}

// Continuation holds the per-category flags for one import run.
type Continuation struct {
	decide DecideFunc
	state  map[Category]State
	logger *slog.Logger
}

// NewContinuation returns a policy with every category set to ask. A nil
// decide aborts on the first error.
func NewContinuation(decide DecideFunc, logger *slog.Logger) *Continuation {
	if decide == nil {
		decide = AlwaysAbort
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Continuation{
		decide: decide,
		state:  make(map[Category]State),
		logger: logger,
	}
}

// State returns the current flag for a category.
func (c *Continuation) State(cat Category) State {
	return c.state[cat]
}

// Recover reports a recoverable error. A nil return means skip the entity and
// carry on; otherwise the returned *AbortError must end the import.
func (c *Continuation) Recover(cat Category, message string) error {
	switch c.state[cat] {
	case StateSkipAll:
		c.logger.Debug("skipping invalid entry", "category", cat.String(), "error", message)
		return nil
	case StateAbort:
		return &AbortError{Category: cat, Message: message}
	}

	decision := c.decide(cat, message)
	c.logger.Warn("invalid import entry",
		"category", cat.String(),
		"error", message,
		"decision", decision.String(),
	)

	switch decision {
	case Ignore:
		return nil
	case IgnoreAll:
		c.state[cat] = StateSkipAll
		return nil
	default:
		c.state[cat] = StateAbort
		return &AbortError{Category: cat, Message: message}
	}
}
