package service

import (
	"context"

	"correspondence/internal/procedure/models"
	id "correspondence/pkg/domain"
)

// DetailView is the group-specific rendering of a procedure.
type DetailView interface {
	Group() models.Group
}

// DetailProvider renders one procedure group.
type DetailProvider interface {
	GetDetail(ctx context.Context, p *models.Procedure) (DetailView, error)
}

type ExternalDetailView struct {
	Procedure         *models.Procedure      `json:"procedure"`
	InstitutionName   string                 `json:"institution_name"`
	ApplicantFullName string                 `json:"applicant_fullname"`
	Applicant         models.Applicant       `json:"applicant"`
	Representative    *models.Representative `json:"representative,omitempty"`
	Requirements      string                 `json:"requirements"`
	Pin               int                    `json:"pin"`
}

func (ExternalDetailView) Group() models.Group { return models.GroupExternal }

type InternalDetailView struct {
	Procedure      *models.Procedure `json:"procedure"`
	DependencyName string            `json:"dependency_name"`
	Sender         models.Worker     `json:"sender"`
	Recipient      models.Worker     `json:"recipient"`
}

func (InternalDetailView) Group() models.Group { return models.GroupInternal }

type ExternalDetailProvider struct {
	directory Directory
}

func (p *ExternalDetailProvider) GetDetail(ctx context.Context, proc *models.Procedure) (DetailView, error) {
	names, err := p.directory.InstitutionNames(ctx, []id.InstitutionID{proc.InstitutionID})
	if err != nil {
		return nil, err
	}
	ext := proc.Detail.External
	return &ExternalDetailView{
		Procedure:         proc,
		InstitutionName:   names[proc.InstitutionID],
		ApplicantFullName: ext.Applicant.FullName(),
		Applicant:         ext.Applicant,
		Representative:    ext.Representative,
		Requirements:      ext.Requirements,
		Pin:               ext.Pin,
	}, nil
}

type InternalDetailProvider struct {
	directory Directory
}

func (p *InternalDetailProvider) GetDetail(ctx context.Context, proc *models.Procedure) (DetailView, error) {
	names, err := p.directory.DependencyNames(ctx, []id.DependencyID{proc.DependencyID})
	if err != nil {
		return nil, err
	}
	return &InternalDetailView{
		Procedure:      proc,
		DependencyName: names[proc.DependencyID],
		Sender:         proc.Detail.Internal.Sender,
		Recipient:      proc.Detail.Internal.Recipient,
	}, nil
}
