// Package http exposes the delivery engine as a JSON API on echo. Requests
// are checked against the embedded OpenAPI document before they reach a
// handler.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"cargotrust/internal/core/application/usecases/commands"
	"cargotrust/internal/core/application/usecases/queries"
	"cargotrust/internal/core/domain/model/delivery"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers are the use cases the API dispatches to.
type Handlers struct {
	CreateDelivery commands.CreateDeliveryCommandHandler
	Transition     commands.TransitionCommandHandler
	UpdateDelivery commands.UpdateDeliveryCommandHandler
	DeleteDelivery commands.DeleteDeliveryCommandHandler
	RegisterUser   commands.RegisterUserCommandHandler
	StoreAdmin     commands.StoreAdminCommandHandler
	Reconcile      commands.ReconcileDeliveriesCommandHandler

	GetDelivery     queries.GetDeliveryQueryHandler
	ListDeliveries  queries.ListDeliveriesQueryHandler
	GetTransactions queries.GetDeliveryTransactionsQueryHandler
	GetUser         queries.GetUserQueryHandler
	Store           queries.StoreQueryHandler
}

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	handlers Handlers
	logger   *zap.Logger
}

func NewServer(handlers Handlers, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{handlers: handlers, logger: logger}
}

// Register mounts the API, the health check, the API document and, when
// gatherer is not nil, the Prometheus endpoint on e.
func (s *Server) Register(ctx context.Context, e *echo.Echo, gatherer prometheus.Gatherer) error {
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return err
	}
	validate, err := requestValidator(doc)
	if err != nil {
		return err
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	e.GET("/openapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", OpenAPIDocument())
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group(APIPrefix, validate)
	api.GET("/deliveries", s.ListDeliveries)
	api.POST("/deliveries", s.CreateDelivery)
	api.GET("/deliveries/:id", s.GetDelivery)
	api.PATCH("/deliveries/:id", s.UpdateDelivery)
	api.DELETE("/deliveries/:id", s.DeleteDelivery)
	api.GET("/deliveries/:id/transactions", s.GetDeliveryTransactions)
	api.POST("/deliveries/:id/:event", s.TransitionDelivery)
	api.POST("/users", s.RegisterUser)
	api.GET("/users/:address", s.GetUser)
	api.DELETE("/store", s.ClearStore)
	api.GET("/store/snapshot", s.ExportSnapshot)
	api.PUT("/store/snapshot", s.ImportSnapshot)
	api.GET("/store/stats", s.StoreStats)
	api.POST("/reconcile", s.Reconcile)
	return nil
}

// CreateDelivery handles POST /api/v1/deliveries: funds an escrow and opens
// the delivery.
func (s *Server) CreateDelivery(c echo.Context) error {
	var req NewDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	cmd, err := commands.NewCreateDeliveryCommand(req.toInput())
	if err != nil {
		return s.fail(c, err)
	}
	d, err := s.handlers.CreateDelivery.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toDeliveryResponse(d))
}

// ListDeliveries handles GET /api/v1/deliveries. Query parameters combine.
func (s *Server) ListDeliveries(c echo.Context) error {
	filter := queries.DeliveryFilter{
		Requester: c.QueryParam("requester"),
		Carrier:   c.QueryParam("carrier"),
		Status:    c.QueryParam("status"),
		Search:    c.QueryParam("q"),
	}
	if open := c.QueryParam("open"); open != "" {
		v, err := strconv.ParseBool(open)
		if err != nil {
			return badRequest(c, fmt.Sprintf("open: %v", err))
		}
		filter.OpenOnly = v
	}
	for name, dst := range map[string]*time.Time{"from": &filter.CreatedFrom, "to": &filter.CreatedTo} {
		if v := c.QueryParam(name); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return badRequest(c, fmt.Sprintf("%s: %v", name, err))
			}
			*dst = t
		}
	}

	query, err := queries.NewListDeliveriesQuery(filter)
	if err != nil {
		return s.fail(c, err)
	}
	ds, err := s.handlers.ListDeliveries.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toDeliveryResponses(ds))
}

func (s *Server) GetDelivery(c echo.Context) error {
	id, err := parseDeliveryID(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	query, err := queries.NewGetDeliveryQuery(id)
	if err != nil {
		return s.fail(c, err)
	}
	d, err := s.handlers.GetDelivery.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toDeliveryResponse(d))
}

// UpdateDelivery handles PATCH /api/v1/deliveries/{id}, the administrative
// partial update.
func (s *Server) UpdateDelivery(c echo.Context) error {
	id, err := parseDeliveryID(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	var req DeliveryPatchRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	patch, err := req.toPatch()
	if err != nil {
		return s.fail(c, err)
	}

	cmd, err := commands.NewUpdateDeliveryCommand(id, patch)
	if err != nil {
		return s.fail(c, err)
	}
	d, err := s.handlers.UpdateDelivery.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toDeliveryResponse(d))
}

func (s *Server) DeleteDelivery(c echo.Context) error {
	id, err := parseDeliveryID(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	cmd, err := commands.NewDeleteDeliveryCommand(id)
	if err != nil {
		return s.fail(c, err)
	}
	if err = s.handlers.DeleteDelivery.Handle(c.Request().Context(), cmd); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetDeliveryTransactions(c echo.Context) error {
	id, err := parseDeliveryID(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	query, err := queries.NewGetDeliveryTransactionsQuery(id)
	if err != nil {
		return s.fail(c, err)
	}
	txs, err := s.handlers.GetTransactions.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toTransactionResponses(txs))
}

// TransitionDelivery handles POST /api/v1/deliveries/{id}/{event}. The body
// is optional; accept needs the carrier as actor.
func (s *Server) TransitionDelivery(c echo.Context) error {
	id, err := parseDeliveryID(c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	var req TransitionRequest
	if c.Request().ContentLength != 0 {
		if err = c.Bind(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	cmd, err := commands.NewTransitionCommand(id, delivery.Event(c.Param("event")), req.Actor)
	if err != nil {
		return s.fail(c, err)
	}
	d, err := s.handlers.Transition.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toDeliveryResponse(d))
}

func (s *Server) RegisterUser(c echo.Context) error {
	var req NewUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	cmd, err := commands.NewRegisterUserCommand(req.Address, req.Name, req.Email, req.Phone)
	if err != nil {
		return s.fail(c, err)
	}
	u, err := s.handlers.RegisterUser.Handle(c.Request().Context(), cmd)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

func (s *Server) GetUser(c echo.Context) error {
	query, err := queries.NewGetUserQuery(c.Param("address"))
	if err != nil {
		return s.fail(c, err)
	}
	u, err := s.handlers.GetUser.Handle(c.Request().Context(), query)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (s *Server) ClearStore(c echo.Context) error {
	if err := s.handlers.StoreAdmin.HandleClearAll(c.Request().Context(), commands.ClearAllCommand{}); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) ExportSnapshot(c echo.Context) error {
	snapshot, err := s.handlers.Store.ExportSnapshot(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSONBlob(http.StatusOK, snapshot)
}

// ImportSnapshot handles PUT /api/v1/store/snapshot. The body is the
// document returned by ExportSnapshot.
func (s *Server) ImportSnapshot(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	cmd, err := commands.NewImportSnapshotCommand(body)
	if err != nil {
		return s.fail(c, err)
	}
	if err = s.handlers.StoreAdmin.HandleImport(c.Request().Context(), cmd); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) StoreStats(c echo.Context) error {
	report, err := s.handlers.Store.Report(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, toStoreStatsResponse(report))
}

// Reconcile handles POST /api/v1/reconcile, an on-demand reconciliation pass.
// Partial failures are reported in the body with status 200.
func (s *Server) Reconcile(c echo.Context) error {
	report, err := s.handlers.Reconcile.Handle(c.Request().Context(), commands.ReconcileDeliveriesCommand{})
	if err != nil && report.Checked == 0 {
		return s.fail(c, err)
	}
	if err != nil {
		s.logger.Warn("reconciliation finished with failures", zap.Error(err))
	}
	return c.JSON(http.StatusOK, ReconcileResponse{
		Checked:  report.Checked,
		Repaired: report.Repaired,
		Failed:   report.Failed,
	})
}
