package callerctx

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentWithoutBegin(t *testing.T) {
	caller, ok := Current(context.Background())
	assert.False(t, ok, "no context established means no caller")
	assert.Equal(t, Caller{}, caller)
}

func TestBeginAndCurrent(t *testing.T) {
	ctx := Begin(context.Background(), Caller{
		Actor:         "admin",
		SourceAddress: "203.0.113.7",
		AgentString:   "Mozilla/5.0",
	})

	caller, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", caller.Actor)
	assert.Equal(t, "203.0.113.7", caller.SourceAddress)
	assert.False(t, caller.Anonymous())
}

func TestBeginReplacesInheritedContext(t *testing.T) {
	// A reused worker starts the next request from a context that may still
	// carry the previous caller. Begin must replace it wholesale.
	first := Begin(context.Background(), Caller{Actor: "alice", SourceAddress: "10.0.0.1"})
	second := Begin(first, Caller{SourceAddress: "10.0.0.2"})

	caller, ok := Current(second)
	require.True(t, ok)
	assert.True(t, caller.Anonymous(), "stale actor must not survive Begin")
	assert.Equal(t, "10.0.0.2", caller.SourceAddress)
}

func TestAgentStringTruncated(t *testing.T) {
	ctx := Begin(context.Background(), Caller{AgentString: strings.Repeat("x", MaxAgentLen+200)})

	caller, ok := Current(ctx)
	require.True(t, ok)
	assert.Len(t, caller.AgentString, MaxAgentLen)
}

func TestConcurrentRequestIsolation(t *testing.T) {
	// Two in-flight requests with different actors never observe each
	// other's caller.
	actors := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	for _, actor := range actors {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			ctx := Begin(context.Background(), Caller{Actor: actor})
			for i := 0; i < 1000; i++ {
				caller, ok := Current(ctx)
				if !ok || caller.Actor != actor {
					t.Errorf("caller leaked across requests: got %q want %q", caller.Actor, actor)
					return
				}
			}
		}(actor)
	}
	wg.Wait()
}
