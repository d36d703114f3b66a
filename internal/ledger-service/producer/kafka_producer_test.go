package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pool-ledger/pkg/contracts/events"
)

type recorder struct {
	msgs []kafka.Message
	err  error
}

func (r *recorder) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func TestKafkaPublisher_KeysByPoolAndStamps(t *testing.T) {
	stakes, resolved, created := &recorder{}, &recorder{}, &recorder{}
	p := NewKafkaPublisher(stakes, resolved, created)
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }
	ctx := context.Background()

	require.NoError(t, p.PublishStakePlaced(ctx, events.StakePlaced{BetID: "b1", PoolID: "p1", Side: "OVER", Amount: 10}))
	require.NoError(t, p.PublishPoolResolved(ctx, events.PoolResolved{PoolID: "p1", Result: "UNDER"}))
	require.NoError(t, p.PublishPoolCreated(ctx, events.PoolCreated{PoolID: "p2", Line: "10.5"}))

	require.Len(t, stakes.msgs, 1)
	assert.Equal(t, "p1", string(stakes.msgs[0].Key))
	var sp events.StakePlaced
	require.NoError(t, json.Unmarshal(stakes.msgs[0].Value, &sp))
	assert.Equal(t, int64(1700000000123), sp.TsUnixMs)
	assert.Equal(t, "b1", sp.BetID)

	require.Len(t, resolved.msgs, 1)
	assert.JSONEq(t,
		`{"pool_id":"p1","result":"UNDER","over_total":0,"under_total":0,"payouts":[],"residue":0,"ts_unix_ms":1700000000123}`,
		string(resolved.msgs[0].Value))

	require.Len(t, created.msgs, 1)
	assert.Equal(t, "p2", string(created.msgs[0].Key))
}

func TestKafkaPublisher_PropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&recorder{err: boom}, &recorder{}, &recorder{})
	err := p.PublishStakePlaced(context.Background(), events.StakePlaced{PoolID: "p1"})
	assert.ErrorIs(t, err, boom)
}
