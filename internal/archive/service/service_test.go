package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"correspondence/internal/archive/models"
	archiveStore "correspondence/internal/archive/store"
	commModels "correspondence/internal/communication/models"
	commService "correspondence/internal/communication/service"
	commStore "correspondence/internal/communication/store"
	dirModels "correspondence/internal/directory/models"
	dirService "correspondence/internal/directory/service"
	dirStore "correspondence/internal/directory/store"
	procModels "correspondence/internal/procedure/models"
	procService "correspondence/internal/procedure/service"
	procStore "correspondence/internal/procedure/store"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	outboxMemory "correspondence/pkg/platform/outbox/store/memory"
	"correspondence/pkg/platform/tx"
	"correspondence/pkg/requestcontext"
)

var now = time.Date(2025, 3, 17, 9, 30, 0, 0, time.UTC)

type ArchiveSuite struct {
	suite.Suite
	ctx        context.Context
	tx         *tx.Memory
	directory  *dirService.Service
	procedures *procService.Service
	comms      *commStore.InMemory
	router     *commService.Router
	inbox      *commService.Inbox
	archives   *archiveStore.InMemory
	events     *outboxMemory.Store
	service    *Service

	ana, luis, carla *dirModels.Account
}

func TestArchiveSuite(t *testing.T) {
	suite.Run(t, new(ArchiveSuite))
}

func (s *ArchiveSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.tx = tx.NewMemory()
	s.directory = dirService.New(dirStore.NewInMemory())
	accounts, err := dirService.Seed(s.ctx, s.directory, "Municipalidad Provincial", "MPC", map[string]dirModels.Officer{
		"Mesa de Partes": {FullName: "Ana Quispe", JobTitle: "Secretaria"},
		"Logistica":      {FullName: "Luis Rojas", JobTitle: "Jefe"},
		"Contabilidad":   {FullName: "Carla Mendoza", JobTitle: "Contadora"},
	})
	s.Require().NoError(err)
	s.ana, s.luis, s.carla = accounts["Mesa de Partes"], accounts["Logistica"], accounts["Contabilidad"]

	s.procedures = procService.New(procStore.NewInMemory(), s.directory, s.tx)
	s.comms = commStore.NewInMemory()
	s.router = commService.NewRouter(s.comms, s.procedures, s.directory, s.tx)
	s.inbox = commService.NewInbox(s.comms, s.procedures, s.directory, s.tx)
	s.archives = archiveStore.NewInMemory()
	s.events = outboxMemory.New()
	s.service = New(s.archives, s.inbox, s.directory, s.events, s.tx)
}

// received registers a procedure, sends the original to luis and a copy to
// carla, and has both accept.
func (s *ArchiveSuite) received() (*procModels.Procedure, *commModels.Communication, *commModels.Communication) {
	p, err := s.procedures.RegisterExternal(s.ctx, s.ana.ID, procService.RegisterExternal{
		Segment:   "EXT",
		Reference: "Licencia de funcionamiento",
		Applicant: procModels.Applicant{Type: procModels.ApplicantNatural, FirstName: "Rosa", LastName: "Huaman", Phone: "987654321"},
	})
	s.Require().NoError(err)
	out, err := s.router.Initiate(s.ctx, s.ana.ID, commService.InitiateRequest{
		ProcedureID: p.ID,
		Recipients: []commService.Recipient{
			{AccountID: s.luis.ID, IsOriginal: true},
			{AccountID: s.carla.ID},
		},
	})
	s.Require().NoError(err)
	s.Require().Len(out, 2)
	toLuis, toCarla := out[0], out[1]
	if toLuis.Recipient.AccountID != s.luis.ID {
		toLuis, toCarla = toCarla, toLuis
	}
	_, err = s.inbox.Accept(s.ctx, s.luis.ID, []id.CommunicationID{toLuis.ID})
	s.Require().NoError(err)
	_, err = s.inbox.Accept(s.ctx, s.carla.ID, []id.CommunicationID{toCarla.ID})
	s.Require().NoError(err)
	return p, toLuis, toCarla
}

func (s *ArchiveSuite) status(commID id.CommunicationID) commModels.Status {
	c, err := s.comms.FindByID(s.ctx, commID)
	s.Require().NoError(err)
	return c.Status
}

func (s *ArchiveSuite) TestCreateCompletesAndAnnounces() {
	p, toLuis, toCarla := s.received()

	res, err := s.service.Create(s.ctx, s.luis.ID, CreateRequest{
		IDs:         []id.CommunicationID{toLuis.ID},
		Description: "Licencia otorgada",
		State:       procModels.StateConcluded,
	})
	s.Require().NoError(err)
	s.Require().Len(res.Archives, 1)
	a := res.Archives[0]
	s.Equal(toLuis.ID, a.CommunicationID)
	s.Equal(s.luis.ID, a.AccountID)
	s.Equal(s.luis.DependencyID, a.DependencyID)
	s.Equal("Luis Rojas", a.FullName)
	s.Equal(p.Code, a.Procedure.Code)
	s.Equal(procModels.StateConcluded, a.State)
	s.Equal(now, a.CreatedAt)
	s.Equal([]id.ProcedureID{p.ID}, res.Completed)
	s.Equal(commModels.StatusArchived, s.status(toLuis.ID))

	got, err := s.procedures.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(procModels.StateConcluded, got.State)

	events := s.events.All()
	s.Require().Len(events, 1)
	s.Equal(procModels.EventProcedureCompleted, events[0].EventType)
	s.Equal(procModels.AggregateProcedure, events[0].AggregateType)
	s.Equal(p.ID.String(), events[0].AggregateID)
	var payload procModels.CompletedEvent
	s.Require().NoError(json.Unmarshal(events[0].Payload, &payload))
	s.Equal(p.ID, payload.ProcedureID)
	s.Equal(p.Code, payload.Code)
	s.Equal(procModels.StateConcluded, payload.State)

	s.Run("archiving a copy completes nothing", func() {
		res, err := s.service.Create(s.ctx, s.carla.ID, CreateRequest{
			IDs:   []id.CommunicationID{toCarla.ID},
			State: procModels.StateConcluded,
		})
		s.Require().NoError(err)
		s.Len(res.Archives, 1)
		s.Empty(res.Completed)
		s.Len(s.events.All(), 1)
	})
}

func (s *ArchiveSuite) TestCreateGuards() {
	_, toLuis, _ := s.received()

	s.Run("non terminal state", func() {
		_, err := s.service.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, State: procModels.StateInReview})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing folder", func() {
		missing := id.NewFolderID()
		_, err := s.service.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, FolderID: &missing, State: procModels.StateConcluded})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Contains(err.Error(), "folder does not exist")
	})

	s.Run("folder of another dependency", func() {
		f, err := s.service.CreateFolder(s.ctx, s.carla.ID, "Contratos 2025")
		s.Require().NoError(err)
		_, err = s.service.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, FolderID: &f.ID, State: procModels.StateConcluded})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("communication of someone else", func() {
		_, err := s.service.Create(s.ctx, s.carla.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, State: procModels.StateConcluded})
		s.Require().Error(err)
	})

	s.Equal(commModels.StatusReceived, s.status(toLuis.ID))
	s.Empty(s.events.All())
}

type failingArchives struct {
	*archiveStore.InMemory
}

func (failingArchives) InsertArchives(context.Context, []*models.Archive) error {
	return errors.New("disk full")
}

func (s *ArchiveSuite) TestCreateIsAtomic() {
	p, toLuis, _ := s.received()
	svc := New(failingArchives{s.archives}, s.inbox, s.directory, s.events, s.tx)

	_, err := svc.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, State: procModels.StateConcluded})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.Equal(commModels.StatusReceived, s.status(toLuis.ID))
	got, err := s.procedures.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(procModels.StateInReview, got.State)
	s.Empty(s.events.All())
}

func (s *ArchiveSuite) TestRemove() {
	archive := func() (*procModels.Procedure, *models.Archive) {
		p, toLuis, _ := s.received()
		res, err := s.service.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, State: procModels.StateConcluded})
		s.Require().NoError(err)
		return p, res.Archives[0]
	}

	s.Run("by the archiving officer", func() {
		p, a := archive()
		c, err := s.service.Remove(s.ctx, s.luis.ID, a.ID)
		s.Require().NoError(err)
		s.Equal(a.CommunicationID, c.ID)
		s.Equal(commModels.StatusReceived, c.Status)

		_, err = s.archives.FindArchive(s.ctx, a.ID)
		s.Require().Error(err)
		got, err := s.procedures.Get(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(procModels.StateInReview, got.State)
	})

	s.Run("by a colleague continues the procedure", func() {
		_, a := archive()
		luis, err := s.directory.Resolve(s.ctx, s.luis.ID)
		s.Require().NoError(err)
		deputy, err := s.directory.CreateAccount(s.ctx, dirModels.Officer{FullName: "Pedro Salas", JobTitle: "Asistente"}, luis.Dependency)
		s.Require().NoError(err)

		c, err := s.service.Remove(s.ctx, deputy.ID, a.ID)
		s.Require().NoError(err)
		s.NotEqual(a.CommunicationID, c.ID)
		s.Equal(deputy.ID, c.Recipient.AccountID)
		s.Equal(commService.ContinuationReference, c.Reference)
		s.Equal(commModels.StatusCompleted, s.status(a.CommunicationID))
	})

	s.Run("from another dependency", func() {
		_, a := archive()
		_, err := s.service.Remove(s.ctx, s.carla.ID, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(commModels.StatusArchived, s.status(a.CommunicationID))
	})

	s.Run("unknown archive", func() {
		_, err := s.service.Remove(s.ctx, s.luis.ID, id.NewArchiveID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ArchiveSuite) TestFolders() {
	f, err := s.service.CreateFolder(s.ctx, s.luis.ID, "  Licencias  ")
	s.Require().NoError(err)
	s.Equal("Licencias", f.Name)
	s.Equal("Luis Rojas", f.ManagerName)
	s.Equal(s.luis.DependencyID, f.DependencyID)

	_, err = s.service.CreateFolder(s.ctx, s.luis.ID, "Licencias")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Contains(err.Error(), "folder name exists")

	// Names are unique per dependency only.
	_, err = s.service.CreateFolder(s.ctx, s.carla.ID, "Licencias")
	s.Require().NoError(err)

	_, err = s.service.CreateFolder(s.ctx, s.luis.ID, "   ")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	renamed, err := s.service.RenameFolder(s.ctx, s.luis.ID, f.ID, "Licencias 2025")
	s.Require().NoError(err)
	s.Equal("Licencias 2025", renamed.Name)

	_, err = s.service.RenameFolder(s.ctx, s.luis.ID, id.NewFolderID(), "Otra")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.RenameFolder(s.ctx, s.carla.ID, f.ID, "Mia")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, toLuis, _ := s.received()
	_, err = s.service.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, FolderID: &f.ID, State: procModels.StateSuspended})
	s.Require().NoError(err)

	folders, err := s.service.ListFolders(s.ctx, s.luis.ID)
	s.Require().NoError(err)
	s.Require().Len(folders, 1)
	s.Equal(1, folders[0].ArchiveCount)

	page, err := s.service.List(s.ctx, s.luis.ID, ListRequest{FolderID: &f.ID, Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal("Licencias 2025", page.Items[0].FolderName)

	err = s.service.DeleteFolder(s.ctx, s.luis.ID, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Contains(err.Error(), "still contains archives")

	empty, err := s.service.CreateFolder(s.ctx, s.luis.ID, "Vacia")
	s.Require().NoError(err)
	s.Require().NoError(s.service.DeleteFolder(s.ctx, s.luis.ID, empty.ID))
	err = s.service.DeleteFolder(s.ctx, s.luis.ID, empty.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ArchiveSuite) TestListScopesToDependency() {
	_, toLuis, toCarla := s.received()
	_, err := s.service.Create(s.ctx, s.luis.ID, CreateRequest{IDs: []id.CommunicationID{toLuis.ID}, State: procModels.StateConcluded})
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, s.carla.ID, CreateRequest{IDs: []id.CommunicationID{toCarla.ID}, State: procModels.StateConcluded})
	s.Require().NoError(err)

	page, err := s.service.List(s.ctx, s.luis.ID, ListRequest{Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal(toLuis.ID, page.Items[0].CommunicationID)

	missing := id.NewFolderID()
	_, err = s.service.List(s.ctx, s.luis.ID, ListRequest{FolderID: &missing})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
