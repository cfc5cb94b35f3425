package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcasterNotifiesAllListeners(t *testing.T) {
	b := NewUnauthorizedBroadcaster()

	first, second := 0, 0
	b.Subscribe(func() { first++ })
	b.Subscribe(func() { second++ })

	b.Notify()
	b.Notify()

	assert.Equal(t, 2, first)
	assert.Equal(t, 2, second)
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewUnauthorizedBroadcaster()

	calls := 0
	unsubscribe := b.Subscribe(func() { calls++ })

	b.Notify()
	unsubscribe()
	b.Notify()

	assert.Equal(t, 1, calls)
}

func TestNotifyWithNoListeners(t *testing.T) {
	b := NewUnauthorizedBroadcaster()
	b.Notify()
}

func TestStaticTokenSource(t *testing.T) {
	source := &StaticTokenSource{BearerToken: "tok", Claims: Claims{Id: "u1", Role: "admin"}}

	token, err := source.Token(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "u1", source.Identity().Id)

	token, err = AnonymousTokenSource{}.Token(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, AnonymousTokenSource{}.Identity().Id)
}
