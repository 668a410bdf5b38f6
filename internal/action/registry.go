package action

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mselway/courtier/internal/config"
	"github.com/mselway/courtier/internal/game"
	"gopkg.in/yaml.v3"
)

// Registry holds the actions loaded for a session. It is assembled once
// at session start from the built-in set plus user-defined definition
// files, and is immutable between Reload calls.
type Registry struct {
	cfg     config.Config
	logger  *slog.Logger
	actions map[string]Action
}

// NewRegistry builds a registry from the built-in actions and the
// configured definitions directory. Disabled actions never load; a
// malformed individual definition file is skipped with a logged error.
func NewRegistry(cfg config.Config, logger *slog.Logger) *Registry {
	r := &Registry{cfg: cfg, logger: logger}
	r.Reload()
	return r
}

// Reload re-assembles the registry. Called at session start and on
// configuration change.
func (r *Registry) Reload() {
	r.actions = make(map[string]Action)
	for _, a := range builtinActions() {
		r.register(a)
	}
	if r.cfg.ActionsDir != "" {
		r.loadDir(r.cfg.ActionsDir)
	}
}

func (r *Registry) register(a Action) {
	if r.cfg.ActionDisabled(a.Signature) {
		r.logger.Debug("action disabled by config", "action", a.Signature)
		return
	}
	r.actions[a.Signature] = a
}

// loadDir enumerates YAML definition files. File-level failures skip the
// file only.
func (r *Registry) loadDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("cannot enumerate actions dir", "dir", dir, "error", err)
		}
		return
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		a, err := loadDefinition(path)
		if err != nil {
			r.logger.Error("skipping malformed action file", "file", path, "error", err)
			continue
		}
		r.register(a)
	}
}

// Get returns the action with the given signature.
func (r *Registry) Get(signature string) (Action, bool) {
	a, ok := r.actions[signature]
	return a, ok
}

// Available returns the actions whose Check passes in the given state,
// sorted by signature for stable prompt rendering.
func (r *Registry) Available(s State) []Action {
	out := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		if a.Check == nil || a.Check(s) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })
	return out
}

// Len returns the number of loaded actions.
func (r *Registry) Len() int {
	return len(r.actions)
}

// definition is the YAML shape of a user-defined template action. Effects
// are effect-command templates with {argName} placeholders.
type definition struct {
	Signature   string    `yaml:"signature"`
	Description string    `yaml:"description"`
	Args        []ArgSpec `yaml:"args"`
	Effects     []string  `yaml:"effects"`
	Requires    struct {
		MinGold     int  `yaml:"min_gold"`
		LandedRuler bool `yaml:"landed_ruler"`
	} `yaml:"requires"`
}

func loadDefinition(path string) (Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Action{}, fmt.Errorf("read: %w", err)
	}

	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Action{}, fmt.Errorf("parse: %w", err)
	}
	if def.Signature == "" {
		return Action{}, fmt.Errorf("missing signature")
	}
	if len(def.Effects) == 0 {
		return Action{}, fmt.Errorf("action %s declares no effects", def.Signature)
	}

	return Action{
		Signature:   def.Signature,
		Description: def.Description,
		Args:        def.Args,
		Check: func(s State) bool {
			if def.Requires.MinGold > 0 && s.Actor.Gold < def.Requires.MinGold {
				return false
			}
			if def.Requires.LandedRuler && !s.Actor.IsLandedRuler {
				return false
			}
			return true
		},
		Execute: func(s State, args []any, sink game.EffectSink) error {
			for _, tmpl := range def.Effects {
				line := expandEffect(tmpl, def.Args, args, s)
				if err := sink.Append(line); err != nil {
					return fmt.Errorf("emit effect: %w", err)
				}
			}
			return nil
		},
	}, nil
}

// expandEffect substitutes {argName}, {actor} and {initiator} placeholders
// in an effect-command template.
func expandEffect(tmpl string, specs []ArgSpec, args []any, s State) string {
	out := tmpl
	for i, spec := range specs {
		if i >= len(args) {
			break
		}
		out = strings.ReplaceAll(out, "{"+spec.Name+"}", fmt.Sprint(args[i]))
	}
	out = strings.ReplaceAll(out, "{actor}", fmt.Sprint(s.Actor.ID))
	out = strings.ReplaceAll(out, "{initiator}", fmt.Sprint(s.Initiator.ID))
	return out
}
