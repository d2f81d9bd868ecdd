package pending

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/appnet-org/tcprpc/pkg/rpcerr"
	"github.com/appnet-org/tcprpc/pkg/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stringType = reflect.TypeOf("")

func TestParkAndCompleteValue(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, time.Hour)
	defer tbl.Close()

	future, err := tbl.Park(1, stringType, time.Now().Add(time.Minute))
	require.NoError(t, err)

	body, _ := serializer.JSONSerializer{}.Encode("hi")
	ok := tbl.CompleteValue(1, body)
	assert.True(t, ok)

	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hi", value)
	assert.Equal(t, 0, tbl.Len())
}

func TestParkDuplicateIDFails(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, time.Hour)
	defer tbl.Close()

	_, err := tbl.Park(5, stringType, time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = tbl.Park(5, stringType, time.Now().Add(time.Minute))
	var dupErr *rpcerr.DuplicateIdError
	require.ErrorAs(t, err, &dupErr)
}

func TestCompleteRemoteError(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, time.Hour)
	defer tbl.Close()

	future, _ := tbl.Park(2, stringType, time.Now().Add(time.Minute))
	ok := tbl.CompleteRemoteError(2, "boom")
	assert.True(t, ok)

	_, err := future.Wait(context.Background())
	var remoteErr *rpcerr.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "boom", remoteErr.Message)
}

func TestLateCompletionIsDroppedSilently(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, time.Hour)
	defer tbl.Close()

	future, _ := tbl.Park(3, stringType, time.Now().Add(time.Minute))
	tbl.CompleteRemoteError(3, "first")

	ok := tbl.CompleteRemoteError(3, "second")
	assert.False(t, ok, "a second completion for the same id must be a no-op")

	_, err := future.Wait(context.Background())
	assert.EqualError(t, err, "first")
}

func TestTakeAllResolvesShutdown(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, time.Hour)
	defer tbl.Close()

	futures := make([]*Future, 3)
	for i := range futures {
		f, err := tbl.Park(uint32(i+1), stringType, time.Now().Add(time.Minute))
		require.NoError(t, err)
		futures[i] = f
	}

	ids := tbl.TakeAll()
	assert.Len(t, ids, 3)
	assert.Equal(t, 0, tbl.Len())

	for _, f := range futures {
		_, err := f.Wait(context.Background())
		var shutdownErr *rpcerr.ShutdownError
		require.ErrorAs(t, err, &shutdownErr)
	}
}

func TestTimeoutSweepCompletesExpiredCalls(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, 10*time.Millisecond)
	defer tbl.Close()

	future, err := tbl.Park(9, stringType, time.Now().Add(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = future.Wait(ctx)
	var timeoutErr *rpcerr.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 0, tbl.Len())
}

func TestTimeoutThenLateReplyIsDropped(t *testing.T) {
	tbl := New(serializer.JSONSerializer{}, 10*time.Millisecond)
	defer tbl.Close()

	future, err := tbl.Park(11, stringType, time.Now().Add(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = future.Wait(ctx)
	require.Error(t, err)

	body, _ := serializer.JSONSerializer{}.Encode("late")
	ok := tbl.CompleteValue(11, body)
	assert.False(t, ok)
}
