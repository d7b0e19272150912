package environment

import (
	"encoding/json"

	"github.com/dev-hans-programmer/postman-clone/internal/model"
	"github.com/dev-hans-programmer/postman-clone/internal/vars"
)

// Variable is one key/value pair of an environment. Disabled variables are
// kept but excluded from substitution.
type Variable struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// UnmarshalJSON defaults enabled to true when the field is absent.
func (v *Variable) UnmarshalJSON(data []byte) error {
	type alias struct {
		Key         string `json:"key"`
		Value       string `json:"value"`
		Description string `json:"description"`
		Enabled     *bool  `json:"enabled"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	v.Key = a.Key
	v.Value = a.Value
	v.Description = a.Description
	v.Enabled = a.Enabled == nil || *a.Enabled
	return nil
}

// Environment is a named, ordered set of variables. Name is the natural key
// within a store; at most one environment is active at a time.
type Environment struct {
	Name      string     `json:"name"`
	Variables []Variable `json:"variables"`
	CreatedAt float64    `json:"created_at"`
	IsActive  bool       `json:"is_active"`
}

func New(name string) *Environment {
	return &Environment{Name: name, Variables: []Variable{}, CreatedAt: model.NowUnix()}
}

type environmentAlias Environment

func (e *Environment) UnmarshalJSON(data []byte) error {
	alias := environmentAlias{}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*e = Environment(alias)
	if e.Variables == nil {
		e.Variables = []Variable{}
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = model.NowUnix()
	}
	return nil
}

// VariablesMap returns the enabled variables keyed by name.
func (e *Environment) VariablesMap() map[string]string {
	values := make(map[string]string, len(e.Variables))
	for _, v := range e.Variables {
		if v.Enabled && v.Key != "" {
			values[v.Key] = v.Value
		}
	}
	return values
}

// Provider exposes the enabled variables to the substitution engine.
func (e *Environment) Provider() vars.Provider {
	return vars.NewMapProvider("env:"+e.Name, e.VariablesMap())
}

// Substitute replaces {{key}} placeholders with this environment's values.
func (e *Environment) Substitute(text string) string {
	return vars.Substitute(text, e.VariablesMap())
}

// AddVariable appends a new enabled variable.
func (e *Environment) AddVariable(key, value, description string) {
	e.Variables = append(e.Variables, Variable{
		Key:         key,
		Value:       value,
		Description: description,
		Enabled:     true,
	})
}

// RemoveVariable deletes the first variable with the given key.
func (e *Environment) RemoveVariable(key string) bool {
	for i, v := range e.Variables {
		if v.Key == key {
			e.Variables = append(e.Variables[:i], e.Variables[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateVariable changes an existing variable's value and, when non-nil, its
// description.
func (e *Environment) UpdateVariable(key, value string, description *string) bool {
	for i := range e.Variables {
		if e.Variables[i].Key == key {
			e.Variables[i].Value = value
			if description != nil {
				e.Variables[i].Description = *description
			}
			return true
		}
	}
	return false
}
