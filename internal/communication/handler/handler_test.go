package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"correspondence/internal/communication/handler/mocks"
	"correspondence/internal/communication/models"
	"correspondence/internal/communication/service"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
	"correspondence/pkg/platform/httputil"
	"correspondence/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/communication-mocks.go -package=mocks Router,Inbox
type CommunicationHandlerSuite struct {
	suite.Suite
	router  *mocks.MockRouter
	inbox   *mocks.MockInbox
	mux     *chi.Mux
	account id.AccountID
}

func TestCommunicationHandlerSuite(t *testing.T) {
	suite.Run(t, new(CommunicationHandlerSuite))
}

func (s *CommunicationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.router = mocks.NewMockRouter(ctrl)
	s.inbox = mocks.NewMockInbox(ctrl)
	s.account = id.NewAccountID()

	h := New(s.router, s.inbox, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.mux = chi.NewRouter()
	h.Register(s.mux)
}

func (s *CommunicationHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		payload = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, payload)
	req = req.WithContext(requestcontext.WithAccountID(req.Context(), s.account))
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w
}

func (s *CommunicationHandlerSuite) TestInitiate() {
	procedureID := id.NewProcedureID()
	recipient := id.NewAccountID()

	s.Run("parses the body and returns the batch", func() {
		sent := &models.Communication{ID: id.NewCommunicationID(), Status: models.StatusPending, Origin: models.OriginOriginal}
		s.router.EXPECT().Initiate(gomock.Any(), s.account, service.InitiateRequest{
			ProcedureID: procedureID,
			Recipients:  []service.Recipient{{AccountID: recipient, IsOriginal: true}},
			SendDetails: service.SendDetails{Reference: "Para informe", Priority: 1},
		}).Return([]*models.Communication{sent}, nil)

		w := s.do(http.MethodPost, "/communications", map[string]any{
			"procedure_id": procedureID.String(),
			"recipients":   []map[string]any{{"account_id": recipient.String(), "is_original": true}},
			"reference":    "  Para informe ",
			"priority":     1,
		})
		s.Equal(http.StatusCreated, w.Code)
		var out []map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
		s.Require().Len(out, 1)
		s.Equal(sent.ID.String(), out[0]["id"])
		s.Equal("original", out[0]["origin"])
	})

	s.Run("rejects a malformed procedure id before calling the service", func() {
		w := s.do(http.MethodPost, "/communications", map[string]any{
			"procedure_id": "not-a-uuid",
			"recipients":   []map[string]any{{"account_id": recipient.String()}},
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("maps domain errors", func() {
		s.router.EXPECT().Initiate(gomock.Any(), s.account, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "The procedure has already started."))

		w := s.do(http.MethodPost, "/communications", map[string]any{
			"procedure_id": procedureID.String(),
			"recipients":   []map[string]any{{"account_id": recipient.String(), "is_original": true}},
		})
		s.Equal(http.StatusBadRequest, w.Code)
		var resp httputil.ErrorResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal("The procedure has already started.", resp.ErrorDescription)
	})
}

func (s *CommunicationHandlerSuite) TestForwardUsesPathID() {
	commID := id.NewCommunicationID()
	recipient := id.NewAccountID()
	s.router.EXPECT().Forward(gomock.Any(), s.account, service.ReplyRequest{
		CommunicationID: commID,
		Recipients:      []service.Recipient{{AccountID: recipient}},
		SendDetails:     service.SendDetails{},
	}).Return([]*models.Communication{{ID: id.NewCommunicationID()}}, nil)

	w := s.do(http.MethodPost, "/communications/"+commID.String()+"/forward", map[string]any{
		"recipients": []map[string]any{{"account_id": recipient.String()}},
	})
	s.Equal(http.StatusCreated, w.Code)
}

func (s *CommunicationHandlerSuite) TestAcceptReportsBatchDetails() {
	known, missing := id.NewCommunicationID(), id.NewCommunicationID()
	s.inbox.EXPECT().Accept(gomock.Any(), s.account, []id.CommunicationID{known, missing}).
		Return(nil, &dErrors.Error{
			Code:    dErrors.CodeNotFound,
			Message: "some communications do not exist for this account",
			Details: &dErrors.Details{
				NotFoundIDs:  []string{missing.String()},
				InvalidItems: []dErrors.InvalidItem{{ID: known.String(), Status: "received"}},
			},
		})

	w := s.do(http.MethodPost, "/inbox/accept", map[string]any{"ids": []string{known.String(), missing.String()}})
	s.Equal(http.StatusNotFound, w.Code)
	var resp httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal([]string{missing.String()}, resp.NotFoundIDs)
	s.Require().Len(resp.InvalidItems, 1)
	s.Equal(known.String(), resp.InvalidItems[0].ID)
}

func (s *CommunicationHandlerSuite) TestRejectRequiresDescription() {
	w := s.do(http.MethodPost, "/inbox/reject", map[string]any{"ids": []string{id.NewCommunicationID().String()}, "description": " "})
	s.Equal(http.StatusBadRequest, w.Code)

	commID := id.NewCommunicationID()
	s.inbox.EXPECT().Reject(gomock.Any(), s.account, []id.CommunicationID{commID}, "Falta firma").
		Return(&service.BatchResult{IDs: []id.CommunicationID{commID}}, nil)
	w = s.do(http.MethodPost, "/inbox/reject", map[string]any{"ids": []string{commID.String()}, "description": "Falta firma"})
	s.Equal(http.StatusOK, w.Code)
}

func (s *CommunicationHandlerSuite) TestCancel() {
	commID := id.NewCommunicationID()
	s.router.EXPECT().Cancel(gomock.Any(), s.account, []id.CommunicationID{commID}).
		Return(&service.CancelResult{
			CanceledIDs: []id.CommunicationID{commID},
			Restored:    []service.RestoredItem{{Type: service.RestoreAdministration, Code: "EXT-MPC-2025-000001"}},
		}, nil)

	w := s.do(http.MethodDelete, "/communications", map[string]any{"ids": []string{commID.String()}})
	s.Equal(http.StatusOK, w.Code)
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	restored := out["restored"].([]any)
	s.Equal("administration", restored[0].(map[string]any)["type"])
}

func (s *CommunicationHandlerSuite) TestListInboxQuery() {
	s.inbox.EXPECT().ListInbox(gomock.Any(), s.account, models.InboxFilter{
		Status: models.StatusReceived, Group: "internal", Limit: 5, Offset: 10,
	}).Return(&models.Page{Items: []*models.Communication{}, Total: 12}, nil)

	w := s.do(http.MethodGet, "/inbox?status=received&group=internal&limit=5&offset=10", nil)
	s.Equal(http.StatusOK, w.Code)

	for _, query := range []string{"?limit=0", "?limit=500", "?offset=-1", "?status=lost", "?group=other"} {
		w := s.do(http.MethodGet, "/inbox"+query, nil)
		s.Equal(http.StatusBadRequest, w.Code, query)
	}
}

func (s *CommunicationHandlerSuite) TestOutboxIncludesRemainingTime() {
	left := int64(3600000)
	s.router.EXPECT().ListOutbox(gomock.Any(), s.account, models.OutboxFilter{Limit: 10}).
		Return(&service.OutboxPage{Items: []service.OutboxEntry{{
			Communication:   &models.Communication{ID: id.NewCommunicationID(), Status: models.StatusPending},
			RemainingTimeMs: &left,
		}}, Total: 1}, nil)

	w := s.do(http.MethodGet, "/communications/outbox", nil)
	s.Equal(http.StatusOK, w.Code)
	var out struct {
		Items []map[string]any `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	s.Equal(float64(3600000), out.Items[0]["remaining_time"])
	s.Equal("pending", out.Items[0]["status"])
}

func (s *CommunicationHandlerSuite) TestGetOneForbidden() {
	commID := id.NewCommunicationID()
	s.inbox.EXPECT().GetOne(gomock.Any(), commID, s.account).
		Return(nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this communication"))

	w := s.do(http.MethodGet, "/inbox/"+commID.String(), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/inbox/nope", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
