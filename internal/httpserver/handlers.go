package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"trackersms/internal/domain"
	"trackersms/internal/service"
	"trackersms/internal/store/legacy"
)

type LegacyStore interface {
	List(ctx context.Context, limit int) ([]legacy.SmsMessage, error)
	Create(ctx context.Context, in legacy.CreateInput, now time.Time) (legacy.SmsMessage, error)
}

// API serves the /api routes.
type API struct {
	Registry  *service.Registry
	Messaging *service.Messaging
	Reports   *service.Reports
	Legacy    LegacyStore

	// Development exposes internal error text in 500 responses.
	Development bool
	Now         func() time.Time
}

func (a *API) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/models", a.handleListModels).Methods(http.MethodGet)
	api.HandleFunc("/models", a.handleCreateModel).Methods(http.MethodPost)
	api.HandleFunc("/models/{id:[0-9]+}", a.handleGetModel).Methods(http.MethodGet)
	api.HandleFunc("/models/{id:[0-9]+}", a.handleUpdateModel).Methods(http.MethodPut)
	api.HandleFunc("/models/{id:[0-9]+}", a.handleDeleteModel).Methods(http.MethodDelete)
	api.HandleFunc("/models/{modelId:[0-9]+}/commands", a.handleListModelCommands).Methods(http.MethodGet)

	api.HandleFunc("/commands", a.handleListCommands).Methods(http.MethodGet)
	api.HandleFunc("/commands", a.handleCreateCommand).Methods(http.MethodPost)
	api.HandleFunc("/commands/{id:[0-9]+}", a.handleGetCommand).Methods(http.MethodGet)
	api.HandleFunc("/commands/{id:[0-9]+}", a.handleUpdateCommand).Methods(http.MethodPut)
	api.HandleFunc("/commands/{id:[0-9]+}", a.handleDeleteCommand).Methods(http.MethodDelete)

	api.HandleFunc("/sms/send", a.handleSend).Methods(http.MethodPost)
	api.HandleFunc("/sms/history", a.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/sms/stats", a.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/reports/csv", a.handleCSV).Methods(http.MethodGet)
	api.HandleFunc("/reports/pdf", a.handlePDF).Methods(http.MethodGet)

	api.HandleFunc("/sms", a.handleLegacyList).Methods(http.MethodGet)
	api.HandleFunc("/sms", a.handleLegacyCreate).Methods(http.MethodPost)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, a.Development)
}

func (a *API) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := a.Registry.ListModels(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, models, len(models))
}

func (a *API) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	m, err := a.Registry.GetModel(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, m, "")
}

func (a *API) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var in domain.ModelInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.fail(w, r, bodyError(err))
		return
	}
	m, err := a.Registry.CreateModel(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, m, "Model created successfully")
}

func (a *API) handleUpdateModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in domain.ModelInput
	if err := decodeJSON(w, r, &in); err != nil {
		a.fail(w, r, bodyError(err))
		return
	}
	m, err := a.Registry.UpdateModel(r.Context(), id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, m, "Model updated successfully")
}

func (a *API) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Registry.DeleteModel(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "Model deleted successfully")
}

func (a *API) handleListModelCommands(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "modelId")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	cmds, err := a.Registry.ListModelCommands(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, cmds, len(cmds))
}

// commandBody accepts both snake_case and camelCase field names.
type commandBody struct {
	ModelID        int64  `json:"model_id"`
	ModelIDAlt     int64  `json:"modelId"`
	CommandText    string `json:"command_text"`
	CommandTextAlt string `json:"commandText"`
	Description    string `json:"description"`
}

func (b commandBody) input() domain.CommandInput {
	in := domain.CommandInput{ModelID: b.ModelID, CommandText: b.CommandText, Description: b.Description}
	if in.ModelID == 0 {
		in.ModelID = b.ModelIDAlt
	}
	if in.CommandText == "" {
		in.CommandText = b.CommandTextAlt
	}
	return in
}

func (a *API) handleListCommands(w http.ResponseWriter, r *http.Request) {
	cmds, err := a.Registry.ListCommands(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	okList(w, cmds, len(cmds))
}

func (a *API) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.Registry.GetCommand(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, c, "")
}

func (a *API) handleCreateCommand(w http.ResponseWriter, r *http.Request) {
	var body commandBody
	if err := decodeJSON(w, r, &body); err != nil {
		a.fail(w, r, bodyError(err))
		return
	}
	c, err := a.Registry.CreateCommand(r.Context(), body.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, c, "Command created successfully")
}

func (a *API) handleUpdateCommand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var body commandBody
	if err := decodeJSON(w, r, &body); err != nil {
		a.fail(w, r, bodyError(err))
		return
	}
	c, err := a.Registry.UpdateCommand(r.Context(), id, body.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, c, "Command updated successfully")
}

func (a *API) handleDeleteCommand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.Registry.DeleteCommand(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "Command deleted successfully")
}
