package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"correspondence/internal/communication/models"
	dirModels "correspondence/internal/directory/models"
	procModels "correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
)

type InboxSuite struct {
	suite.Suite
	f *routingFixture
}

func TestInboxSuite(t *testing.T) {
	suite.Run(t, new(InboxSuite))
}

func (s *InboxSuite) SetupTest() {
	s.f = newRoutingFixture(s.T())
}

func (s *InboxSuite) send(recipients ...Recipient) (*procModels.Procedure, []*models.Communication) {
	p := s.f.register(s.T())
	out, err := s.f.router.Initiate(s.f.ctx, s.f.ana.ID, InitiateRequest{ProcedureID: p.ID, Recipients: recipients})
	s.Require().NoError(err)
	return p, out
}

func (s *InboxSuite) TestAccept() {
	_, out := s.send(original(s.f.luis))

	res, err := s.f.inbox.Accept(s.f.ctx, s.f.luis.ID, []id.CommunicationID{out[0].ID, out[0].ID})
	s.Require().NoError(err)
	s.Equal([]id.CommunicationID{out[0].ID}, res.IDs)
	s.Equal(friday, res.Date)

	c, err := s.f.store.FindByID(s.f.ctx, out[0].ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReceived, c.Status)
	s.Require().NotNil(c.ReceivedDate)
	s.Equal(friday, *c.ReceivedDate)

	s.Run("accepting twice reports the item", func() {
		_, err := s.f.inbox.Accept(s.f.ctx, s.f.luis.ID, []id.CommunicationID{out[0].ID})
		s.True(dErrors.HasCode(err, dErrors.CodeUnprocessableEntity))
		de, _ := dErrors.As(err)
		s.Require().Len(de.Details.InvalidItems, 1)
		s.Equal(string(models.StatusReceived), de.Details.InvalidItems[0].Status)
		s.Contains(err.Error(), "pending")
	})

	s.Run("someone else's communication is not found", func() {
		_, err := s.f.inbox.Accept(s.f.ctx, s.f.carla.ID, []id.CommunicationID{out[0].ID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		de, _ := dErrors.As(err)
		s.Equal([]string{out[0].ID.String()}, de.Details.NotFoundIDs)
	})

	s.Run("empty selection", func() {
		_, err := s.f.inbox.Accept(s.f.ctx, s.f.luis.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *InboxSuite) TestReject() {
	_, out := s.send(original(s.f.luis))

	_, err := s.f.inbox.Reject(s.f.ctx, s.f.luis.ID, []id.CommunicationID{out[0].ID}, "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.f.inbox.Reject(s.f.ctx, s.f.luis.ID, []id.CommunicationID{out[0].ID}, " Expediente incompleto ")
	s.Require().NoError(err)

	c, err := s.f.store.FindByID(s.f.ctx, out[0].ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, c.Status)
	s.Require().NotNil(c.ActionLog)
	s.Equal(models.ActionLog{FullName: "Luis Rojas", Date: friday, Description: "Expediente incompleto"}, *c.ActionLog)

	page, err := s.f.router.ListOutbox(s.f.ctx, s.f.ana.ID, models.OutboxFilter{})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Nil(page.Items[0].RemainingTimeMs)
}

// TestArchiveCompletesEachProcedureOnce verifies only communications that
// carry the original complete their procedure.
func (s *InboxSuite) TestArchiveCompletesEachProcedureOnce() {
	first, a := s.send(original(s.f.luis))
	second, b := s.send(original(s.f.luis))
	third, c := s.send(original(s.f.carla), copyTo(s.f.luis))
	ids := []id.CommunicationID{a[0].ID, b[0].ID, c[1].ID}
	_, err := s.f.inbox.Accept(s.f.ctx, s.f.luis.ID, ids)
	s.Require().NoError(err)

	spy := &countingProcedures{Procedures: s.f.procedures, calls: map[id.ProcedureID]int{}}
	inbox := NewInbox(s.f.store, spy, s.f.directory, s.f.tx)
	closedAt := friday.Add(2 * time.Hour)

	res, err := inbox.Archive(s.f.ctx, ArchiveRequest{
		IDs:         ids,
		Description: "Atendido",
		State:       procModels.StateConcluded,
		Account:     s.f.luis,
		Date:        closedAt,
	})
	s.Require().NoError(err)
	s.Len(res.Items, 3)
	s.ElementsMatch([]id.ProcedureID{first.ID, second.ID}, res.Completed)
	s.Equal(map[id.ProcedureID]int{first.ID: 1, second.ID: 1}, spy.calls)

	for _, p := range []*procModels.Procedure{first, second} {
		got, err := s.f.procedures.Get(s.f.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(procModels.StateConcluded, got.State)
		s.Equal(procModels.StatusCompleted, got.Status)
		s.Equal(closedAt, *got.CompletedAt)
	}
	got, err := s.f.procedures.Get(s.f.ctx, third.ID)
	s.Require().NoError(err)
	s.Equal(procModels.StateInReview, got.State)

	archived, err := s.f.store.FindByID(s.f.ctx, c[1].ID)
	s.Require().NoError(err)
	s.Equal(models.StatusArchived, archived.Status)
	s.Equal("Atendido", archived.ActionLog.Description)
}

func (s *InboxSuite) TestArchiveGuards() {
	_, out := s.send(original(s.f.luis))

	_, err := s.f.inbox.Archive(s.f.ctx, ArchiveRequest{IDs: []id.CommunicationID{out[0].ID}, State: procModels.StateInReview, Account: s.f.luis, Date: friday})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.f.inbox.Archive(s.f.ctx, ArchiveRequest{IDs: []id.CommunicationID{out[0].ID}, State: procModels.StateConcluded, Account: s.f.luis, Date: friday})
	s.True(dErrors.HasCode(err, dErrors.CodeUnprocessableEntity))
}

func (s *InboxSuite) TestRestore() {
	archive := func(to *dirModels.Account) (*procModels.Procedure, *models.Communication) {
		p, out := s.send(original(to))
		_, err := s.f.inbox.Accept(s.f.ctx, to.ID, []id.CommunicationID{out[0].ID})
		s.Require().NoError(err)
		_, err = s.f.inbox.Archive(s.f.ctx, ArchiveRequest{IDs: []id.CommunicationID{out[0].ID}, Description: "Fin", State: procModels.StateConcluded, Account: to, Date: friday})
		s.Require().NoError(err)
		return p, out[0]
	}

	s.Run("the same officer gets the communication back", func() {
		p, c := archive(s.f.luis)

		var restored *models.Communication
		err := s.f.tx.RunInTx(s.f.ctx, func(ctx context.Context) error {
			var err error
			restored, err = s.f.inbox.Restore(ctx, c.ID, s.f.luis, false)
			return err
		})
		s.Require().NoError(err)
		s.Equal(c.ID, restored.ID)
		s.Equal(models.StatusReceived, restored.Status)
		s.Nil(restored.ActionLog)

		got, err := s.f.procedures.Get(s.f.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(procModels.StateInReview, got.State)
		s.Equal(procModels.StatusPending, got.Status)
		s.Nil(got.CompletedAt)
	})

	s.Run("another officer of the dependency gets a continuation", func() {
		_, c := archive(s.f.luis)
		luis, err := s.f.directory.Resolve(s.f.ctx, s.f.luis.ID)
		s.Require().NoError(err)
		deputy, err := s.f.directory.CreateAccount(s.f.ctx, dirModels.Officer{FullName: "Pedro Salas", JobTitle: "Asistente"}, luis.Dependency)
		s.Require().NoError(err)

		cont, err := s.f.inbox.Restore(s.f.ctx, c.ID, deputy, true)
		s.Require().NoError(err)
		s.NotEqual(c.ID, cont.ID)
		s.Equal(ContinuationReference, cont.Reference)
		s.Equal(models.StatusReceived, cont.Status)
		s.Equal("Luis Rojas", cont.Sender.FullName)
		s.Equal(deputy.ID, cont.Recipient.AccountID)
		s.Equal(c.ID, *cont.ParentID)
		s.Equal(models.OriginOriginal, cont.Origin)

		old, err := s.f.store.FindByID(s.f.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, old.Status)
	})

	s.Run("only archived communications are restored", func() {
		_, out := s.send(original(s.f.mario))
		_, err := s.f.inbox.Restore(s.f.ctx, out[0].ID, s.f.mario, false)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *InboxSuite) TestGetOne() {
	_, out := s.send(original(s.f.luis))

	c, err := s.f.inbox.GetOne(s.f.ctx, out[0].ID, s.f.luis.ID)
	s.Require().NoError(err)
	s.Equal(out[0].ID, c.ID)

	_, err = s.f.inbox.GetOne(s.f.ctx, out[0].ID, s.f.carla.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.f.inbox.GetOne(s.f.ctx, id.NewCommunicationID(), s.f.luis.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *InboxSuite) TestListInboxOrdersByPriority() {
	_, low := s.send(original(s.f.luis))
	p := s.f.register(s.T())
	high, err := s.f.router.Initiate(s.f.ctx, s.f.ana.ID, InitiateRequest{
		ProcedureID: p.ID,
		Recipients:  []Recipient{original(s.f.luis)},
		SendDetails: SendDetails{Priority: 3},
	})
	s.Require().NoError(err)

	page, err := s.f.inbox.ListInbox(s.f.ctx, s.f.luis.ID, models.InboxFilter{Limit: 10})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Equal(high[0].ID, page.Items[0].ID)
	s.Equal(low[0].ID, page.Items[1].ID)

	page, err = s.f.inbox.ListInbox(s.f.ctx, s.f.luis.ID, models.InboxFilter{Status: models.StatusReceived, Limit: 10})
	s.Require().NoError(err)
	s.Zero(page.Total)
}

func (s *InboxSuite) TestWorkflowResolvesNames() {
	p, out := s.send(original(s.f.luis))
	_, err := s.f.inbox.Accept(s.f.ctx, s.f.luis.ID, []id.CommunicationID{out[0].ID})
	s.Require().NoError(err)
	_, err = s.f.router.Forward(s.f.ctx, s.f.luis.ID, ReplyRequest{CommunicationID: out[0].ID, Recipients: []Recipient{original(s.f.carla)}})
	s.Require().NoError(err)

	flow, err := s.f.inbox.Workflow(s.f.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(flow, 2)
	s.Equal("Mesa de Partes", flow[0].SenderDependency)
	s.Equal("Logistica", flow[0].RecipientDependency)
	s.Equal("Municipalidad Provincial", flow[0].SenderInstitution)
	s.Equal("Logistica", flow[1].SenderDependency)
	s.Equal("Contabilidad", flow[1].RecipientDependency)

	_, err = s.f.inbox.Workflow(s.f.ctx, id.NewProcedureID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// countingProcedures counts state writes per procedure.
type countingProcedures struct {
	Procedures
	calls map[id.ProcedureID]int
}

func (c *countingProcedures) UpdateState(ctx context.Context, procedureID id.ProcedureID, patch procModels.Patch) error {
	c.calls[procedureID]++
	return c.Procedures.UpdateState(ctx, procedureID, patch)
}
