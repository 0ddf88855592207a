package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"correspondence/internal/directory/models"
	"correspondence/internal/directory/store"
	id "correspondence/pkg/domain"
	dErrors "correspondence/pkg/domain-errors"
)

type DirectorySuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
	dep     *models.Dependency
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.service = New(s.store)

	inst, err := s.service.CreateInstitution(s.ctx, "Municipalidad Provincial", "mpc")
	s.Require().NoError(err)
	s.Equal("MPC", inst.Acronym)
	s.dep, err = s.service.CreateDependency(s.ctx, inst.ID, "Mesa de Partes", "MDP")
	s.Require().NoError(err)
}

func (s *DirectorySuite) TestResolve() {
	acc, err := s.service.CreateAccount(s.ctx, models.Officer{FullName: "Ana Quispe", JobTitle: "Secretaria"}, s.dep)
	s.Require().NoError(err)

	s.Run("populates dependency and institution", func() {
		got, err := s.service.Resolve(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Equal("Mesa de Partes", got.Dependency.Name)
		s.Equal("MPC", got.Institution.Acronym)
		s.Equal("Ana Quispe", got.Officer.FullName)
	})

	s.Run("unknown account is not found", func() {
		_, err := s.service.Resolve(s.ctx, id.NewAccountID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("inactive account is not found", func() {
		s.Require().NoError(s.store.SetActive(s.ctx, acc.ID, false))
		_, err := s.service.Resolve(s.ctx, acc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		ok, err := s.service.Exists(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *DirectorySuite) TestResolveManyKeepsOrderAndNamesFailure() {
	a, err := s.service.CreateAccount(s.ctx, models.Officer{FullName: "A"}, s.dep)
	s.Require().NoError(err)
	b, err := s.service.CreateAccount(s.ctx, models.Officer{FullName: "B"}, s.dep)
	s.Require().NoError(err)

	got, err := s.service.ResolveMany(s.ctx, []id.AccountID{b.ID, a.ID})
	s.Require().NoError(err)
	s.Equal(b.ID, got[0].ID)
	s.Equal(a.ID, got[1].ID)

	missing := id.NewAccountID()
	_, err = s.service.ResolveMany(s.ctx, []id.AccountID{a.ID, missing})
	var re *ResolveError
	s.Require().ErrorAs(err, &re)
	s.Equal(missing, re.AccountID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *DirectorySuite) TestOfficerHasSingleAccount() {
	officer := models.Officer{ID: id.NewOfficerID(), FullName: "Luis Rojas"}
	_, err := s.service.CreateAccount(s.ctx, officer, s.dep)
	s.Require().NoError(err)

	_, err = s.service.CreateAccount(s.ctx, officer, s.dep)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Contains(err.Error(), "officer already has an account")
}

func (s *DirectorySuite) TestNames() {
	names, err := s.service.DependencyNames(s.ctx, []id.DependencyID{s.dep.ID, id.NewDependencyID()})
	s.Require().NoError(err)
	s.Equal(map[id.DependencyID]string{s.dep.ID: "Mesa de Partes"}, names)

	instNames, err := s.service.InstitutionNames(s.ctx, []id.InstitutionID{s.dep.InstitutionID})
	s.Require().NoError(err)
	s.Equal("Municipalidad Provincial", instNames[s.dep.InstitutionID])
}

func (s *DirectorySuite) TestValidation() {
	_, err := s.service.CreateInstitution(s.ctx, " ", "X")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.CreateInstitution(s.ctx, "Otra", "MPC")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.CreateDependency(s.ctx, id.NewInstitutionID(), "Logistica", "LOG")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
