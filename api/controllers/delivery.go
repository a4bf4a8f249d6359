package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/api/responses"
	"github.com/agromarket/agromarket-backend/api/validators"
	"github.com/agromarket/agromarket-backend/internal/delivery"
	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/pkg/logger"
)

func DeliveryJobs(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "delivery service")
			return
		}
		jobs, err := svc.ListJobs(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": jobs})
	}
}

// DeliveryClaim claims a confirmed, unassigned order. Only one concurrent claim wins.
func DeliveryClaim(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(logg, svc, "jobId", func(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error) {
		return svc.Claim(ctx, agentID, orderID)
	})
}

func DeliveryComplete(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(logg, svc, "orderId", func(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error) {
		return svc.Complete(ctx, agentID, orderID)
	})
}

func DeliveryActive(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return agentOrders(logg, svc, func(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error) {
		return svc.ListActive(ctx, agentID)
	})
}

func DeliveryCompleted(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return agentOrders(logg, svc, func(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error) {
		return svc.ListCompleted(ctx, agentID)
	})
}

func DeliveryEarnings(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "delivery service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		earnings, err := svc.Earnings(r.Context(), identity.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, earnings)
	}
}

func DeliveryDashboard(svc delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "delivery service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		dashboard, err := svc.Dashboard(r.Context(), identity.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

func deliveryTransition(logg *logger.Logger, svc delivery.Service, param string, apply func(ctx context.Context, agentID, orderID uuid.UUID) (*orders.OrderDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "delivery service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := apply(r.Context(), identity.UserID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func agentOrders(logg *logger.Logger, svc delivery.Service, load func(ctx context.Context, agentID uuid.UUID) ([]orders.OrderDTO, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "delivery service")
			return
		}
		identity, ok := requireIdentity(w, r, logg)
		if !ok {
			return
		}
		list, err := load(r.Context(), identity.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}
