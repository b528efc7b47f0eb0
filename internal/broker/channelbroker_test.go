package broker_test

import (
	"sync/atomic"
	"testing"

	"github.com/mkarsten/kaltvik/internal/broker"
	"github.com/mkarsten/kaltvik/internal/compose"
	"github.com/stretchr/testify/require"
)

func TestChannelBrokerStreamsTokens(t *testing.T) {
	b := broker.NewChannelBroker[string, compose.Token]()
	go b.Start()
	defer b.Stop()

	slotID := "slot-a"
	channel := make(chan compose.Token)
	b.Publish(slotID, channel)
	go func() {
		channel <- compose.Token{Text: "The cabin is cold.", Style: compose.StyleBase}
		channel <- compose.Token{Text: "\n\nYou remember this hallway.", Style: compose.StyleLens}
		close(channel)
		b.Unpublish(slotID)
	}()

	subscriptionChan := <-b.Subscribe(slotID)
	first := <-subscriptionChan
	require.Equal(t, compose.StyleBase, first.Style)
	second := <-subscriptionChan
	require.Equal(t, compose.StyleLens, second.Style)

	_, ok := <-subscriptionChan
	require.False(t, ok, "channel not closed after producer finished")
}

func TestChannelBrokerClosesWhenNothingPublished(t *testing.T) {
	b := broker.NewChannelBroker[string, compose.Token]()
	go b.Start()
	defer b.Stop()

	_, ok := <-b.Subscribe("missing")
	require.False(t, ok, "expected closed channel for unpublished id")
}

func TestChannelBrokerLateSubscriberBlocksUntilUnpublish(t *testing.T) {
	b := broker.NewChannelBroker[string, compose.Token]()
	go b.Start()
	defer b.Stop()

	slotID := "slot-b"
	channel := make(chan compose.Token)
	b.Publish(slotID, channel)

	firstSubscription := <-b.Subscribe(slotID)
	require.NotNil(t, firstSubscription)

	var lateDelivered atomic.Bool
	late := b.Subscribe(slotID)
	done := make(chan struct{})
	go func() {
		<-late
		lateDelivered.Store(true)
		close(done)
	}()

	require.False(t, lateDelivered.Load(), "late subscriber should block while producer runs")
	b.Unpublish(slotID)
	<-done
	require.True(t, lateDelivered.Load())
}
