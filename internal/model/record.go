package model

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/estatedesk/internal/workflow"
)

func (d Delivery) Key() uuid.UUID                         { return d.ID }
func (d Delivery) CurrentStatus() workflow.DeliveryStatus { return d.Status }

func (m MaintenanceRequest) Key() uuid.UUID                            { return m.ID }
func (m MaintenanceRequest) CurrentStatus() workflow.MaintenanceStatus { return m.Status }

func (v VisitorRequest) Key() uuid.UUID                        { return v.ID }
func (v VisitorRequest) CurrentStatus() workflow.VisitorStatus { return v.Status }
