package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/httputil"
	"github.com/enverbisevac/txoutbox/lock"
	"github.com/enverbisevac/txoutbox/openapi"
	"github.com/enverbisevac/txoutbox/outbox"
	"github.com/enverbisevac/txoutbox/types"
	"github.com/enverbisevac/txoutbox/validator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

const sendEmailType = "send_email_v1"

// SendEmail asks a mail worker to notify the customer.
type SendEmail struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

type CreateOrderRequest struct {
	Item     string `json:"item" yaml:"item" required:"true"`
	Customer string `json:"customer" yaml:"customer" required:"true"`
	Email    string `json:"email" yaml:"email" required:"true" format:"email"`
	// Note is appended to the confirmation email when present.
	Note types.Optional[string] `json:"note,omitzero" yaml:"note"`
}

func (r CreateOrderRequest) Validate() error {
	v := new(validator.Validator)
	v.Check(validator.NotBlank(r.Item), fmt.Errorf("item is required"))
	v.Check(validator.MaxRunes(r.Item, 200), fmt.Errorf("item must not exceed 200 characters"))
	v.Check(validator.NotBlank(r.Customer), fmt.Errorf("customer is required"))
	v.Check(validator.IsEmail(r.Email), fmt.Errorf("email %q is not valid", r.Email))
	if note, ok := r.Note.Value(); ok {
		v.Check(validator.MaxRunes(note, 500), fmt.Errorf("note must not exceed 500 characters"))
	}
	return v.Err("invalid order")
}

type OrderCreated struct {
	ID        int64  `json:"id" yaml:"id"`
	MessageID string `json:"message_id" yaml:"message_id"`
}

type ProcessResponse struct {
	Cycles    int  `json:"cycles" yaml:"cycles"`
	Acquired  bool `json:"acquired" yaml:"acquired"`
	Published int  `json:"published" yaml:"published"`
	Failed    int  `json:"failed" yaml:"failed"`
	Pending   bool `json:"pending" yaml:"pending"`
}

type StatusResponse struct {
	Pending      bool     `json:"pending" yaml:"pending"`
	MessageTypes []string `json:"message_types" yaml:"message_types"`
	Owner        string   `json:"owner" yaml:"owner"`
}

type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
}

// App wires the outbox into the demo HTTP API.
type App struct {
	config     Config
	log        logr.Logger
	backend    *Backend
	broker     *Broker
	owner      lock.Owner
	registry   *outbox.Registry
	txs        *outbox.TxFactory
	processor  *outbox.Processor
	dispatcher *outbox.Dispatcher
	router     *openapi.Router
}

func NewApp(log logr.Logger, config Config, backend *Backend, broker *Broker, owner lock.Owner) (*App, error) {
	registry, err := outbox.NewRegistry(
		outbox.Register[SendEmail](sendEmailType),
	)
	if err != nil {
		return nil, err
	}

	options := config.Outbox.options()
	trigger := outbox.NewTrigger()

	processor, err := outbox.NewProcessor(
		backend.Store,
		lock.New(backend.Locks, owner),
		broker.Publishers,
		options...,
	)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:     config,
		log:        log,
		backend:    backend,
		broker:     broker,
		owner:      owner,
		registry:   registry,
		txs:        outbox.NewTxFactory(backend.Store, registry, trigger, options...),
		processor:  processor,
		dispatcher: outbox.NewDispatcher(backend.Store, processor, trigger, options...),
	}

	if err := app.routes(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) routes() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.withLogger)
	r.Use(middleware.Recoverer)

	a.router = openapi.NewRouter(r, "outbox-demo", "1.0.0")

	errorStatuses := []int{http.StatusBadRequest, http.StatusInternalServerError}
	ops := []struct {
		method  string
		pattern string
		handler http.HandlerFunc
		options []openapi.OperationFunc
	}{
		{
			method:  http.MethodPost,
			pattern: "/orders",
			handler: a.handleCreateOrder,
			options: []openapi.OperationFunc{
				openapi.WithID("createOrder"),
				openapi.WithSummary("Record a purchase and queue a confirmation email"),
				openapi.WithTags("orders"),
				openapi.WithRequest(new(CreateOrderRequest)),
				openapi.WithResponse(http.StatusCreated, new(OrderCreated)),
				openapi.WithErrors(new(httputil.ErrorResponse), errorStatuses...),
			},
		},
		{
			method:  http.MethodPost,
			pattern: "/outbox/process",
			handler: a.handleProcess,
			options: []openapi.OperationFunc{
				openapi.WithID("processOutbox"),
				openapi.WithSummary("Run processor cycles until nothing is pending"),
				openapi.WithDescription("Runs up to max_cycles processor cycles. Stops early when nothing is pending, "+
					"the lease is held by another process or a cycle publishes nothing."),
				openapi.WithTags("outbox"),
				openapi.WithResponse(http.StatusOK, new(ProcessResponse)),
				openapi.WithErrors(new(httputil.ErrorResponse), errorStatuses...),
			},
		},
		{
			method:  http.MethodGet,
			pattern: "/outbox/status",
			handler: a.handleStatus,
			options: []openapi.OperationFunc{
				openapi.WithID("outboxStatus"),
				openapi.WithTags("outbox"),
				openapi.WithResponse(http.StatusOK, new(StatusResponse)),
				openapi.WithErrors(new(httputil.ErrorResponse), http.StatusInternalServerError),
			},
		},
		{
			method:  http.MethodGet,
			pattern: "/healthz",
			handler: a.handleHealth,
			options: []openapi.OperationFunc{
				openapi.WithID("health"),
				openapi.WithResponse(http.StatusOK, new(HealthResponse)),
				openapi.WithErrors(new(httputil.ErrorResponse), http.StatusInternalServerError),
			},
		},
	}

	for _, op := range ops {
		if err := a.router.Operation(op.method, op.pattern, op.handler, op.options...); err != nil {
			return err
		}
	}
	a.router.Get("/openapi.json", a.router.Handler())
	return nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

// Run subscribes to the broker, starts the dispatcher and serves HTTP
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = logr.NewContext(ctx, a.log)

	if err := a.broker.SubscribeAll(ctx, a.registry.MessageTypes()); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              a.config.HTTP.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.dispatcher.Run(ctx)
	})
	g.Go(func() error {
		a.log.Info("http server listening", "addr", server.Addr, "owner", a.owner.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := a.log.WithValues("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(logr.NewContext(r.Context(), log)))
	})
}

func (a *App) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httputil.Decode(w, r, &req); err != nil {
		httputil.RenderError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RenderError(w, r, err)
		return
	}

	resp, err := a.createOrder(r.Context(), req)
	if err != nil {
		httputil.RenderError(w, r, err)
		return
	}
	httputil.Render(w, r, http.StatusCreated, resp)
}

// createOrder writes the purchase and stages its confirmation email in one
// transaction.
func (a *App) createOrder(ctx context.Context, req CreateOrderRequest) (resp OrderCreated, err error) {
	session := a.backend.NewSession()
	tx, err := a.txs.Begin(ctx, session)
	if err != nil {
		return resp, err
	}
	defer func() {
		if cerr := tx.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := session.DB().QueryRow(ctx, a.backend.InsertPurchase, req.Item, req.Customer).Scan(&resp.ID); err != nil {
		return resp, fmt.Errorf("insert purchase: %w", err)
	}

	body := fmt.Sprintf("Your purchase of %s was successful!", req.Item)
	if note, ok := req.Note.Value(); ok {
		body += "\n\n" + note
	}

	msg, err := tx.Add(SendEmail{
		Sender:    "shop@example.com",
		Recipient: req.Email,
		Body:      body,
	})
	if err != nil {
		return resp, err
	}
	resp.MessageID = msg.ID

	if err := tx.Commit(ctx); err != nil {
		return resp, err
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("order created", "id", resp.ID, "message_id", msg.ID)
	return resp, nil
}

func (a *App) handleProcess(w http.ResponseWriter, r *http.Request) {
	maxCycles, err := httputil.QueryParamOrDefault(r, "max_cycles", 10, func(n int) error {
		if !validator.Between(n, 1, 1000) {
			return fmt.Errorf("max_cycles must be between 1 and 1000")
		}
		return nil
	})
	if err != nil {
		httputil.RenderError(w, r, err)
		return
	}

	var resp ProcessResponse
	for resp.Cycles < maxCycles {
		pending, err := a.backend.Store.HasPending(r.Context())
		if err != nil {
			httputil.RenderError(w, r, err)
			return
		}
		if !pending {
			break
		}

		res, err := a.processor.Process(r.Context())
		if err != nil {
			httputil.RenderError(w, r, err)
			return
		}
		resp.Cycles++
		resp.Acquired = resp.Acquired || res.Acquired
		resp.Published += res.Published
		resp.Failed += res.Failed
		if !res.Acquired || res.Published == 0 {
			break
		}
	}

	resp.Pending, err = a.backend.Store.HasPending(r.Context())
	if err != nil {
		httputil.RenderError(w, r, err)
		return
	}
	httputil.Render(w, r, http.StatusOK, resp)
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := a.backend.Store.HasPending(r.Context())
	if err != nil {
		httputil.RenderError(w, r, err)
		return
	}
	httputil.Render(w, r, http.StatusOK, StatusResponse{
		Pending:      pending,
		MessageTypes: a.registry.MessageTypes(),
		Owner:        a.owner.String(),
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.backend.Ping(r.Context()); err != nil {
		httputil.RenderError(w, r, fmt.Errorf("database unavailable: %w", err))
		return
	}
	httputil.Render(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}
