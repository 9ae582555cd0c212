package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/blog-api/internal/password"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/testutil"
	"github.com/iliyamo/blog-api/internal/token"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AccountEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	clock  *clock
	users  *testutil.Users
	tokens *testutil.Tokens
	issuer *token.Issuer
	creds  *Credentials
	ledger *Ledger
	events *recordingPublisher
	auth   *Auth
	admin  *Users
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  &clock{t: time.Now().UTC()},
		users:  testutil.NewUsers(),
		tokens: testutil.NewTokens(),
		events: &recordingPublisher{},
	}
	var err error
	f.issuer, err = token.NewIssuer("test-secret", 15*time.Minute, token.WithClock(f.clock.Now))
	require.NoError(t, err)
	hasher, err := password.NewHasher(password.Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	f.creds, err = NewCredentials(f.users, hasher)
	require.NoError(t, err)
	f.ledger = NewLedger(f.tokens, f.users, f.issuer, DefaultRefreshTTL, WithLedgerClock(f.clock.Now))
	log := testutil.MakeNoopLogger()
	f.auth = NewAuth(f.creds, f.users, f.issuer, f.ledger, f.events, log)
	f.admin = NewUsers(f.users, f.ledger, f.events, log)
	return f
}
