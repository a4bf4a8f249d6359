package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agromarket/agromarket-backend/api/controllers"
	"github.com/agromarket/agromarket-backend/api/middleware"
	"github.com/agromarket/agromarket-backend/internal/admin"
	"github.com/agromarket/agromarket-backend/internal/auth"
	"github.com/agromarket/agromarket-backend/internal/categories"
	"github.com/agromarket/agromarket-backend/internal/delivery"
	"github.com/agromarket/agromarket-backend/internal/negotiations"
	"github.com/agromarket/agromarket-backend/internal/orders"
	"github.com/agromarket/agromarket-backend/internal/payments"
	products "github.com/agromarket/agromarket-backend/internal/products"
	"github.com/agromarket/agromarket-backend/internal/profiles"
	"github.com/agromarket/agromarket-backend/internal/settings"
	"github.com/agromarket/agromarket-backend/internal/wallets"
	paystackwebhook "github.com/agromarket/agromarket-backend/internal/webhooks/paystack"
	"github.com/agromarket/agromarket-backend/pkg/auth/session"
	"github.com/agromarket/agromarket-backend/pkg/config"
	"github.com/agromarket/agromarket-backend/pkg/db"
	"github.com/agromarket/agromarket-backend/pkg/enums"
	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/redis"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer

	Auth         auth.Service
	Profiles     profiles.Service
	Categories   categories.Service
	Products     products.Service
	Negotiations negotiations.Service
	Orders       orders.Service
	Delivery     delivery.Service
	Wallets      wallets.Service
	Payments     payments.Service
	Webhook      *paystackwebhook.Service
	Admin        admin.Service
	Settings     settings.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, redisPinger(d.Redis)))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/paystack", controllers.PaystackWebhook(d.Webhook, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.LoginRule(cfg.AuthRateLimit), rateLimiter(d.Redis), logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.RegisterRule(cfg.AuthRateLimit), rateLimiter(d.Redis), logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/setup-admin", controllers.AuthSetupAdmin(d.Auth, logg))
		})

		r.Get("/categories", controllers.CategoryList(d.Categories, logg))
		r.Get("/products", controllers.ProductList(d.Products, logg))
		r.Get("/products/{productId}", controllers.ProductGet(d.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(idempotencyStore(d.Redis), logg))

			r.Get("/me", controllers.MeGet(d.Profiles, logg))
			r.Put("/me", controllers.MeUpdate(d.Profiles, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleFarmer, enums.RoleAdmin))
				r.Post("/products", controllers.ProductCreate(d.Products, logg))
				r.Put("/products/{productId}", controllers.ProductUpdate(d.Products, logg))
				r.Delete("/products/{productId}", controllers.ProductDelete(d.Products, logg))
			})

			r.Route("/farmer", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleFarmer))
				r.Get("/products", controllers.FarmerProducts(d.Products, logg))
				r.Get("/earnings", controllers.FarmerEarnings(d.Orders, logg))
			})

			r.Route("/negotiations", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/", controllers.NegotiationCreate(d.Negotiations, logg))
				r.Get("/", controllers.NegotiationList(d.Negotiations, logg))
				r.Get("/{negotiationId}", controllers.NegotiationGet(d.Negotiations, logg))
				r.Put("/{negotiationId}", controllers.NegotiationUpdate(d.Negotiations, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/", controllers.OrderCheckout(d.Orders, logg))
				r.Get("/", controllers.OrderList(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(d.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/{orderId}/pay-wallet", controllers.OrderPayWithWallet(d.Payments, logg))
			})

			r.Route("/delivery", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleDeliveryAgent))
				r.Get("/jobs", controllers.DeliveryJobs(d.Delivery, logg))
				r.Post("/jobs/{jobId}/claim", controllers.DeliveryClaim(d.Delivery, logg))
				r.Get("/active", controllers.DeliveryActive(d.Delivery, logg))
				r.Post("/orders/{orderId}/complete", controllers.DeliveryComplete(d.Delivery, logg))
				r.Get("/completed", controllers.DeliveryCompleted(d.Delivery, logg))
				r.Get("/earnings", controllers.DeliveryEarnings(d.Delivery, logg))
				r.Get("/dashboard", controllers.DeliveryDashboard(d.Delivery, logg))
			})

			r.Get("/wallet", controllers.WalletGet(d.Wallets, logg))
			r.Get("/wallet/transactions", controllers.WalletTransactions(d.Payments, logg))
			r.Post("/paystack/initialize", controllers.PaystackInitialize(d.Payments, logg))
			r.Get("/paystack/verify", controllers.PaystackVerify(d.Payments, logg))
			r.Get("/paystack/verify/{reference}", controllers.PaystackVerify(d.Payments, logg))
			r.Post("/checkout/initialize", controllers.CheckoutInitialize(d.Payments, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Get("/stats", controllers.AdminStats(d.Admin, logg))
				r.Get("/users", controllers.AdminUserList(d.Admin, logg))
				r.Post("/users", controllers.AdminUserCreate(d.Admin, logg))
				r.Put("/users/{userId}/role", controllers.AdminUserRole(d.Admin, logg))
				r.Get("/settings/paystack", controllers.AdminPaystackSettings(d.Settings, logg))
				r.Put("/settings/paystack", controllers.AdminPaystackSettingsUpdate(d.Settings, logg))
				r.Post("/categories", controllers.AdminCategoryCreate(d.Categories, logg))
				r.Get("/orders", controllers.AdminOrderList(d.Orders, logg))
				r.Get("/products", controllers.AdminProductList(d.Products, logg))
			})
		})
	})

	return r
}

// A nil *redis.Client must not reach the middleware as a non-nil interface.
func idempotencyStore(client *redis.Client) redis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func rateLimiter(client *redis.Client) fixedWindowLimiter {
	if client == nil {
		return nil
	}
	return client
}

func redisPinger(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
