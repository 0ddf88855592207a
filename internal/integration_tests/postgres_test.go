//go:build integration

package integration_tests

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	notifStore "correspondence/internal/notification/store"
	"correspondence/internal/platform/config"
	"correspondence/internal/platform/kafka"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	"correspondence/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg *containers.PostgresContainer
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().Postgres(s.T())
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresSuite) world(extra func(*config.Config)) *world {
	return newWorld(s.T(), func(c *config.Config) {
		c.Database.URL = s.pg.URL
		c.Database.MaxOpenConns = 20
		c.Database.MaxIdleConns = 5
		c.Notifier.Ledger = "postgres"
		if extra != nil {
			extra(c)
		}
	})
}

func (s *PostgresSuite) TestConcurrentInitiateSendsOnce() {
	t := s.T()
	w := s.world(nil)
	proc := registerExternal(t, w, "Ventanilla")
	legal := w.accounts["Legal"]

	const attempts = 8
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := w.do(t, "Ventanilla", http.MethodPost, "/api/communications", map[string]any{
				"procedure_id": proc.ID.String(),
				"recipients":   []map[string]any{{"account_id": legal.ID.String(), "is_original": true}},
			})
			codes[i] = rr.Code
		}()
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		s.Equal(http.StatusBadRequest, code)
	}
	s.Equal(1, created)

	rr := w.do(t, "Legal", http.MethodGet, "/api/inbox", nil)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"total":1`)
}

func (s *PostgresSuite) TestArchiveCompletesAndNotifiesOnce() {
	t := s.T()
	w := s.world(nil)
	proc := registerExternal(t, w, "Ventanilla")
	legal := w.accounts["Legal"]

	rr := w.do(t, "Ventanilla", http.MethodPost, "/api/communications", map[string]any{
		"procedure_id": proc.ID.String(),
		"recipients":   []map[string]any{{"account_id": legal.ID.String(), "is_original": true}},
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	commID := jsonString(rr.Body.Bytes(), "0.id")

	rr = w.do(t, "Legal", http.MethodPost, "/api/inbox/accept", map[string]any{"ids": []string{commID}})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	rr = w.do(t, "Legal", http.MethodPost, "/api/archives", map[string]any{
		"ids":         []string{commID},
		"description": "concluido",
		"state":       string(procModels.StateConcluded),
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	ctx := context.Background()
	n, err := w.app.Relay.Flush(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Len(w.gateway.sent(), 1)

	var status string
	s.Require().NoError(s.pg.DB.GetContext(ctx, &status,
		`SELECT status FROM notification_ledger WHERE procedure_id = $1`, proc.ID.String()))
	s.Equal("sent", status)
}

func (s *PostgresSuite) TestEventsTravelThroughKafka() {
	t := s.T()
	rp := containers.GetManager().Redpanda(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topic := "procedure-events-" + id.NewProcedureID().String()[:8]
	require.NoError(t, kafka.EnsureTopic(ctx, rp.Brokers, topic, 1))

	w := s.world(func(c *config.Config) {
		c.Kafka.Brokers = rp.Brokers
		c.Kafka.Topic = topic
		c.Kafka.Group = "correspondence-it-" + topic
		c.Outbox.Schedule = "@every 1s"
		c.Outbox.PurgeAt = "@hourly"
	})

	done := make(chan error, 1)
	go func() { done <- w.app.Run(ctx) }()

	proc := registerExternal(t, w, "Ventanilla")
	legal := w.accounts["Legal"]
	rr := w.do(t, "Ventanilla", http.MethodPost, "/api/communications", map[string]any{
		"procedure_id": proc.ID.String(),
		"recipients":   []map[string]any{{"account_id": legal.ID.String(), "is_original": true}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	commID := jsonString(rr.Body.Bytes(), "0.id")
	rr = w.do(t, "Legal", http.MethodPost, "/api/inbox/accept", map[string]any{"ids": []string{commID}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = w.do(t, "Legal", http.MethodPost, "/api/archives", map[string]any{
		"ids":         []string{commID},
		"description": "concluido",
		"state":       string(procModels.StateConcluded),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	assert.Eventually(t, func() bool { return len(w.gateway.sent()) == 1 }, 30*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestRedisLedgerClaimsOnce(t *testing.T) {
	rc := containers.GetManager().Redis(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	ledger := notifStore.NewRedis(rc.Client, time.Minute)
	procedureID := id.NewProcedureID()
	now := time.Now()

	ok, err := ledger.Claim(ctx, procedureID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.Claim(ctx, procedureID, now)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	require.NoError(t, ledger.Release(ctx, procedureID))
	ok, err = ledger.Claim(ctx, procedureID, now)
	require.NoError(t, err)
	assert.True(t, ok, "released claim can be taken again")

	require.NoError(t, ledger.Confirm(ctx, procedureID, "wamid.1", now))
	require.NoError(t, ledger.Release(ctx, procedureID))
	ok, err = ledger.Claim(ctx, procedureID, now)
	require.NoError(t, err)
	assert.False(t, ok, "confirmed notification is never claimed again")
}
