package services

import (
	"log/slog"

	"github.com/cdc-hr/assessment-engine/internal/cache"
	"github.com/cdc-hr/assessment-engine/internal/events"
	"github.com/cdc-hr/assessment-engine/internal/repositories"
	"github.com/cdc-hr/assessment-engine/internal/utils"
)

// ServiceManager bundles the engine's services behind one handle.
type ServiceManager interface {
	Session() SessionService
	ImportExport() ImportExportService
	Close()
}

type serviceManager struct {
	session      SessionService
	importExport ImportExportService
}

func NewServiceManager(
	store cache.SessionStore,
	repo repositories.Repository,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) (ServiceManager, error) {
	sessionService, err := NewSessionService(store, repo, publisher, logger, validator)
	if err != nil {
		return nil, err
	}
	return &serviceManager{
		session:      sessionService,
		importExport: NewImportExportService(logger),
	}, nil
}

func (m *serviceManager) Session() SessionService           { return m.session }
func (m *serviceManager) ImportExport() ImportExportService { return m.importExport }

func (m *serviceManager) Close() {
	m.session.Close()
}
