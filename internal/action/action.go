// Package action implements the registry, parsing, approval and execution
// pipeline for model-requested game-state mutations.
package action

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mselway/courtier/internal/game"
)

// ArgType is the declared type of an action argument.
type ArgType string

const (
	ArgString ArgType = "string"
	ArgInt    ArgType = "int"
	ArgFloat  ArgType = "float"
	ArgBool   ArgType = "bool"
)

// ArgSpec declares one positional argument of an action.
type ArgSpec struct {
	Name     string  `yaml:"name"`
	Type     ArgType `yaml:"type"`
	Optional bool    `yaml:"optional"`
}

// State is the game-state view actions check and execute against.
type State struct {
	Data      *game.Data
	Actor     game.Character
	Initiator game.Character
}

// Action is one named capability a model may request. Signature is unique
// within a registry. Check gates availability in the current state;
// Execute performs the mutation by writing effect commands to the sink.
type Action struct {
	Signature   string
	Description string
	Args        []ArgSpec
	Check       func(s State) bool
	Execute     func(s State, args []any, sink game.EffectSink) error
}

// ValidateArgs converts raw textual arguments into typed values per the
// action's arg specs, enforcing count and type.
func (a Action) ValidateArgs(raw []string) ([]any, error) {
	required := 0
	for _, spec := range a.Args {
		if !spec.Optional {
			required++
		}
	}
	if len(raw) < required || len(raw) > len(a.Args) {
		return nil, fmt.Errorf("%s expects %d-%d args, got %d", a.Signature, required, len(a.Args), len(raw))
	}

	out := make([]any, 0, len(raw))
	for i, r := range raw {
		spec := a.Args[i]
		v, err := convertArg(r, spec.Type)
		if err != nil {
			return nil, fmt.Errorf("%s arg %s: %w", a.Signature, spec.Name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func convertArg(raw string, t ArgType) (any, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	switch t {
	case ArgInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case ArgFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", raw)
		}
		return f, nil
	case ArgBool:
		b, err := strconv.ParseBool(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", raw)
		}
		return b, nil
	case ArgString, "":
		return s, nil
	default:
		return nil, fmt.Errorf("unknown arg type %q", t)
	}
}
