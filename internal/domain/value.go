package domain

// valueState distinguishes the three meanings an attribute value can
// carry. The original design reused a single sentinel for both "not yet
// retrieved" and "remove what I created"; keeping them as distinct
// states makes it impossible to conflate the two at a call site.
type valueState int

const (
	stateUnknown valueState = iota
	stateRollback
	stateSet
)

// Value is the observed ("is") or desired ("should") value of one
// attribute of a managed resource. A Value is either Unknown (not yet
// retrieved), Rollback (desired = remove what I created; only the
// Existence state ever carries this), or a concrete string.
type Value struct {
	state valueState
	str   string
}

// Unknown returns the not-yet-retrieved sentinel
func Unknown() Value {
	return Value{state: stateUnknown}
}

// Rollback returns the remove-what-I-created sentinel
func Rollback() Value {
	return Value{state: stateRollback}
}

// Set returns a concrete attribute value
func Set(s string) Value {
	return Value{state: stateSet, str: s}
}

// IsUnknown reports whether the value has not been retrieved yet
func (v Value) IsUnknown() bool {
	return v.state == stateUnknown
}

// IsRollback reports whether the value is the rollback intent
func (v Value) IsRollback() bool {
	return v.state == stateRollback
}

// IsSet reports whether the value holds a concrete string
func (v Value) IsSet() bool {
	return v.state == stateSet
}

// String returns the concrete value, or "" when not set
func (v Value) String() string {
	return v.str
}

// Equal reports whether two values are the same concrete value. An
// Unknown or Rollback value never equals anything, including itself:
// a state that was never retrieved must not be treated as in sync.
func (v Value) Equal(o Value) bool {
	return v.state == stateSet && o.state == stateSet && v.str == o.str
}
