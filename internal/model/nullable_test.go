package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAppointmentRequest_NullableFields(t *testing.T) {
	var req UpdateAppointmentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"videoLink":null,"prescriptionId":"presc_1"}`), &req))

	assert.True(t, req.VideoLink.Set)
	assert.Nil(t, req.VideoLink.Value)
	assert.True(t, req.PrescriptionID.Set)
	require.NotNil(t, req.PrescriptionID.Value)
	assert.Equal(t, "presc_1", *req.PrescriptionID.Value)

	req = UpdateAppointmentRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"reason":"x"}`), &req))
	assert.False(t, req.VideoLink.Set)
	assert.False(t, req.PrescriptionID.Set)

	assert.Error(t, json.Unmarshal([]byte(`{"videoLink":42}`), &req))
}

func TestUpdateAppointmentRequest_MarshalOmitsAbsent(t *testing.T) {
	reason := "x"
	b, err := json.Marshal(UpdateAppointmentRequest{Reason: &reason, VideoLink: SetNull()})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.JSONEq(t, "null", string(fields["videoLink"]))
	assert.NotContains(t, fields, "prescriptionId")
}

func TestNullableString_Apply(t *testing.T) {
	old := "https://meet.example.com/abc"
	dst := &old

	NullableString{}.Apply(&dst)
	require.NotNil(t, dst)

	SetTo("https://meet.example.com/xyz").Apply(&dst)
	assert.Equal(t, "https://meet.example.com/xyz", *dst)

	SetNull().Apply(&dst)
	assert.Nil(t, dst)
}
