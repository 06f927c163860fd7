package workflow

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// Values is the shared state nodes use to pass small dynamic results (a
// captured stdout line, a parsed smoothness estimate) to their dependents.
// It uses sync.Map: the key space is fixed once the graph is built, each
// key is written by exactly one node, and readers only run after their
// writer finished.
type Values struct {
	m sync.Map
}

// NewValues creates an empty store. One store lives for one execution.
func NewValues() *Values {
	return &Values{}
}

// Set records a value under a key, overwriting any previous value.
func (v *Values) Set(key string, value any) {
	v.m.Store(key, value)
}

// Get retrieves a raw value.
func (v *Values) Get(key string) (any, bool) {
	return v.m.Load(key)
}

// String retrieves a string value. Missing keys are an error: a node asking
// for a value its dependency never produced is a graph wiring bug.
func (v *Values) String(key string) (string, error) {
	raw, ok := v.m.Load(key)
	if !ok {
		return "", errors.Errorf("no value recorded under %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", errors.Errorf("value under %q is %T, not a string", key, raw)
	}
	return s, nil
}

// Float retrieves a numeric value, parsing stored strings (captured stdout)
// on the fly.
func (v *Values) Float(key string) (float64, error) {
	raw, ok := v.m.Load(key)
	if !ok {
		return 0, errors.Errorf("no value recorded under %q", key)
	}
	switch value := raw.(type) {
	case float64:
		return value, nil
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "value under %q is not numeric", key)
		}
		return f, nil
	}
	return 0, errors.Errorf("value under %q is %T, not numeric", key, raw)
}
