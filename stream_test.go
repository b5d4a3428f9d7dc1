package orchestra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrStream(t *testing.T) {
	boom := errors.New("boom")
	stream := errStream(boom)

	assert.False(t, stream.Next())
	assert.False(t, stream.Next())
	assert.Nil(t, stream.Current())
	assert.ErrorIs(t, stream.Err(), boom)
	assert.Nil(t, stream.Result())
}

func TestStreamIteratesEvents(t *testing.T) {
	stream := newStream(3)
	stream.events <- &PlanEvent{RunID: "run_1"}
	stream.events <- &TaskStreamEvent{TaskID: "task_1", Delta: "hello"}
	stream.result = &Result{RunID: "run_1"}
	close(stream.events)

	require.True(t, stream.Next())
	ev1, ok := stream.Current().(*PlanEvent)
	require.True(t, ok, "expected PlanEvent")
	assert.Equal(t, "run_1", ev1.RunID)
	assert.Equal(t, EventPlan, ev1.Type())

	require.True(t, stream.Next())
	ev2, ok := stream.Current().(*TaskStreamEvent)
	require.True(t, ok, "expected TaskStreamEvent")
	assert.Equal(t, "hello", ev2.Delta)

	assert.False(t, stream.Next())
	assert.NoError(t, stream.Err())
	assert.Equal(t, "run_1", stream.Result().RunID)
}
