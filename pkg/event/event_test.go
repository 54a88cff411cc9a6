package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/pkg/logger"
)

type sample struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Link   *string `json:"videoLink"`
	Paid   bool    `json:"paid"`
}

func TestChanges(t *testing.T) {
	link := "https://meet.example.com/abc"
	old := sample{ID: "appt_1", Status: "pending"}
	updated := sample{ID: "appt_1", Status: "approved", Link: &link}

	changes := Changes(old, &updated)

	assert.Len(t, changes, 2)
	assert.Equal(t, map[string]interface{}{"old": "pending", "new": "approved"}, changes["status"])
	assert.Equal(t, map[string]interface{}{"old": nil, "new": link}, changes["videoLink"])
}

func TestEvent_RoundTrip(t *testing.T) {
	e, err := New(AppointmentApproved, "appt_1", sample{ID: "appt_1", Status: "approved"})
	require.NoError(t, err)

	parsed, err := Parse([]byte(mustJSON(t, e)))
	require.NoError(t, err)
	assert.Equal(t, AppointmentApproved, parsed.Type)
	assert.Equal(t, "appt_1", parsed.Subject)

	var s sample
	require.NoError(t, parsed.Decode(&s))
	assert.Equal(t, "approved", s.Status)
}

func TestParse_RejectsUntyped(t *testing.T) {
	_, err := Parse([]byte(`{"id":"x"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

type failingBroker struct{}

func (failingBroker) Publish(context.Context, string, interface{}) error {
	return errors.New("broker down")
}
func (failingBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (failingBroker) Close() error                                            { return nil }

func TestEmit_SwallowsPublishFailure(t *testing.T) {
	p := NewBrokerPublisher(failingBroker{}, "", nil)

	assert.NotPanics(t, func() {
		Emit(context.Background(), p, logger.Nop(), UserCreated, "user_1", sample{ID: "user_1"}, nil)
	})
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	Emit(context.Background(), r, logger.Nop(), UserCreated, "user_1", sample{ID: "user_1"}, nil)
	Emit(context.Background(), r, logger.Nop(), UserDeleted, "user_1", sample{ID: "user_1"}, map[string]interface{}{"x": 1})

	assert.Equal(t, []Type{UserCreated, UserDeleted}, r.Types())
	assert.Equal(t, 1, r.Events()[1].Changes["x"])
}

func mustJSON(t *testing.T, e Event) string {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return string(b)
}
