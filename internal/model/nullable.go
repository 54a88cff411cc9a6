package model

import "encoding/json"

// NullableString is an update field that tells an absent key apart from an
// explicit null. Set is true whenever the key was present in the body; Value
// is nil when that value was null.
type NullableString struct {
	Set   bool
	Value *string
}

// SetTo returns a field that overwrites with s.
func SetTo(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

// SetNull returns a field that clears the stored value.
func SetNull() NullableString {
	return NullableString{Set: true}
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// Apply overwrites *dst when the field was set.
func (n NullableString) Apply(dst **string) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	v := *n.Value
	*dst = &v
}
