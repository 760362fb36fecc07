package api

import (
	"net/http"

	"github.com/AlexZinkM/evm-wallet/internal/handler"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// SetupRouter sets up router with handlers
func SetupRouter(h *handler.WalletHandler, log *zap.Logger) http.Handler {
	r := mux.NewRouter()

	// Middleware setup
	r.Use(LoggingMiddleware(log))
	r.Use(RecoveryMiddleware(log))

	// Swagger UI
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Wallet lifecycle
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	api.HandleFunc("/phrase", h.Phrase).Methods(http.MethodGet)
	api.HandleFunc("/wallet", h.CreateWallet).Methods(http.MethodPost)
	api.HandleFunc("/wallet", h.DeleteWallet).Methods(http.MethodDelete)
	api.HandleFunc("/wallet/import", h.ImportWallet).Methods(http.MethodPost)
	api.HandleFunc("/wallet/import-key", h.ImportWithPrivateKey).Methods(http.MethodPost)
	api.HandleFunc("/wallet/unlock", h.Unlock).Methods(http.MethodPost)
	api.HandleFunc("/wallet/lock", h.Lock).Methods(http.MethodPost)

	// Accounts
	api.HandleFunc("/accounts/import", h.ImportAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/import-key", h.ImportAccountWithKey).Methods(http.MethodPost)
	api.HandleFunc("/accounts/export", h.ExportPrivateKey).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/switch", h.SwitchAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", h.RenameAccount).Methods(http.MethodPatch)
	api.HandleFunc("/accounts/{id}", h.RemoveAccount).Methods(http.MethodDelete)

	// Networks
	api.HandleFunc("/networks", h.Networks).Methods(http.MethodGet)
	api.HandleFunc("/networks", h.AddNetwork).Methods(http.MethodPost)
	api.HandleFunc("/networks/{chainId}", h.RemoveNetwork).Methods(http.MethodDelete)
	api.HandleFunc("/networks/{chainId}/switch", h.SwitchNetwork).Methods(http.MethodPost)

	// Tokens
	api.HandleFunc("/tokens", h.Tokens).Methods(http.MethodGet)
	api.HandleFunc("/tokens", h.AddToken).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{address}", h.RemoveToken).Methods(http.MethodDelete)

	// Transactions
	api.HandleFunc("/send", h.Send).Methods(http.MethodPost)
	api.HandleFunc("/balance/refresh", h.RefreshBalance).Methods(http.MethodPost)
	api.HandleFunc("/transactions/refresh", h.RefreshTransactions).Methods(http.MethodPost)
	api.HandleFunc("/receive", h.Receive).Methods(http.MethodGet)

	return r
}
