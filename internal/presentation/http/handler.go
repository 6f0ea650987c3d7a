package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/h4food/foodmarket/internal/application"
	appcatalog "github.com/h4food/foodmarket/internal/application/catalog"
	"github.com/h4food/foodmarket/internal/application/inventory"
	apporder "github.com/h4food/foodmarket/internal/application/order"
	appuser "github.com/h4food/foodmarket/internal/application/user"
	"github.com/h4food/foodmarket/internal/domain/failure"
	domorder "github.com/h4food/foodmarket/internal/domain/order"
	domuser "github.com/h4food/foodmarket/internal/domain/user"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerIdempotencyKey = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
	requestTimeout       = 15 * time.Second
)

// Services are the use cases behind the HTTP surface.
type Services struct {
	Catalog     *appcatalog.Service
	Queries     *appcatalog.QueryService
	Purchase    application.UseCase[inventory.PurchaseInput, *inventory.PurchaseResult]
	PlaceOrder  application.UseCase[apporder.PlaceOrderInput, *apporder.PlaceOrderResult]
	CancelOrder application.UseCase[string, *domorder.Order]
	ListOrders  application.UseCase[string, []*domorder.Order]
	Register    application.UseCase[appuser.RegisterInput, *domuser.User]
}

type Handler struct {
	svc     Services
	metrics http.Handler
	log     observability.Logger

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

// NewHandler builds the handler. metrics serves /metrics and may be nil.
func NewHandler(svc Services, metrics http.Handler, tel observability.Observability) *Handler {
	tel = observability.OrNop(tel)
	return &Handler{
		svc:          svc,
		metrics:      metrics,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Trace → request logger → HTTP metrics → access log → handler
	r.Use(middleware.RealIP, middleware.Recoverer)
	r.Use(
		h.withTrace,
		ObservabilityMiddleware(h.log, func(r *http.Request) string { return r.Header.Get(headerRequestID) }),
		h.withHTTPMetrics,
		h.withAccessLog,
	)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/foodItems", h.handleListFoods)
		r.Post("/foodItems", h.handleAddFood)
		r.Post("/addFood", h.handleAddFood)
		r.Get("/pageItems", h.handlePage)
		r.Get("/topSelling", h.handleTopSelling)
		r.Get("/foodDetails/{id}", h.handleFoodDetails)
		r.Get("/foodsCount", h.handleCount)
		r.Put("/updateFoodDetails", h.handleUpdateFood)
		r.Patch("/reduceFoodsCount", h.handleReduceStock)
		r.Delete("/deleteFood", h.handleDeleteFood)
		r.Get("/getFoodByEmail", h.handleFoodsByOwner)

		r.Post("/orderFood", h.handlePlaceOrder)
		r.Get("/getOrdersByEmail", h.handleOrdersByPurchaser)
		r.Delete("/cancelOrder", h.handleCancelOrder)

		r.Post("/createUser", h.handleCreateUser)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleListFoods(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Catalog.ListAll(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodItemResponses(items))
}

func (h *Handler) handleAddFood(w http.ResponseWriter, r *http.Request) {
	var req foodItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	item, err := h.svc.Catalog.Create(r.Context(), req.toDomain())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: item.ID})
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Queries.Page(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodItemResponses(items))
}

func (h *Handler) handleTopSelling(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Queries.TopSelling(r.Context(), r.URL.Query().Get("limit"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodItemResponses(items))
}

func (h *Handler) handleFoodDetails(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodItemResponse(item))
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Queries.Count(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) handleUpdateFood(w http.ResponseWriter, r *http.Request) {
	var req updateFoodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	res, err := h.svc.Catalog.Update(r.Context(), req.ID, req.patch())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResultResponse{MatchedCount: res.Matched, ModifiedCount: res.Modified})
}

// handleReduceStock runs the ledger only; no order is recorded.
func (h *Handler) handleReduceStock(w http.ResponseWriter, r *http.Request) {
	var req reduceStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if req.Quantity != nil || req.Count != nil {
		h.writeDomainError(w, r, failure.New(failure.KindValidation,
			"stock snapshots are not accepted; send id and orderedQuantity"))
		return
	}
	res, err := h.svc.Purchase.Execute(r.Context(), inventory.PurchaseInput{
		FoodItemID:      req.ID,
		OrderedQuantity: req.OrderedQuantity,
		PurchaserID:     req.PurchaserID,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseResponse{
		ID:        res.FoodItemID,
		Quantity:  res.Quantity,
		SoldCount: res.SoldCount,
		Depleted:  res.Depleted,
	})
}

func (h *Handler) handleDeleteFood(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Catalog.Delete(r.Context(), r.URL.Query().Get("id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{DeletedCount: 1})
}

func (h *Handler) handleFoodsByOwner(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Catalog.ListByOwner(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodItemResponses(items))
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get(headerIdempotencyKey)
	}

	res, err := h.svc.PlaceOrder.Execute(r.Context(), apporder.PlaceOrderInput{
		IdempotencyKey:  key,
		FoodItemID:      req.FoodItemID,
		OrderedQuantity: req.OrderedQuantity,
		PurchaserID:     req.PurchaserID,
		PurchaserName:   req.PurchaserName,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	body := toOrderResponse(res.Order)
	body.Replayed = res.Replayed
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, body)
}

func (h *Handler) handleOrdersByPurchaser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders.Execute(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.CancelOrder.Execute(r.Context(), r.URL.Query().Get("id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{DeletedCount: 1})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	u, err := h.svc.Register.Execute(r.Context(), appuser.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: u.ID})
}

// decodeJSON rejects unknown fields, trailing data and oversized bodies as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return failure.Wrap(failure.KindValidation, err, "malformed request body")
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return failure.New(failure.KindValidation, "request body must hold a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.KindValidation, failure.KindInvalidArgument:
		return http.StatusBadRequest
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindInsufficientStock, failure.KindConflict:
		return http.StatusConflict
	case failure.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := failure.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError && kind != failure.KindPartialFailure {
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error", observability.F("error", err))
		msg = http.StatusText(status)
	}
	if kind == failure.KindStoreUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Kind: string(kind), Error: strings.TrimSpace(msg)})
}
