package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftmarket/native/market"
	"nftmarket/native/registry"
	"nftmarket/native/token"
	"nftmarket/observability/metrics"
)

const (
	maxRequestBytes = 1 << 20 // 1 MiB
	authTokenEnv    = "NFTMARKET_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000

	codeMarketNotFound  = -32022
	codeMarketForbidden = -32023
	codeMarketConflict  = -32024
	codeMarketFunds     = -32025
)

// Server exposes the marketplace engines over JSON-RPC. Mutating methods
// require the bearer token configured via NFTMARKET_RPC_TOKEN when one is
// set.
type Server struct {
	market    *market.Engine
	assets    *registry.Engine
	tokens    *token.Engine
	authToken string
	log       *slog.Logger
	metrics   *metrics.MarketMetrics
}

// NewServer wires the engines into an RPC server.
func NewServer(marketEngine *market.Engine, assetEngine *registry.Engine, tokenEngine *token.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		market:    marketEngine,
		assets:    assetEngine,
		tokens:    tokenEngine,
		authToken: strings.TrimSpace(os.Getenv(authTokenEnv)),
		log:       log,
		metrics:   metrics.Market(),
	}
}

// Router returns the HTTP handler serving the RPC endpoint, health check and
// Prometheus metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on the supplied address.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}

type handlerFunc func(w http.ResponseWriter, req *RPCRequest)

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "parse_error", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "parse_error", err.Error())
		return
	}
	if req.JSONRPC != jsonRPCVersion || strings.TrimSpace(req.Method) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "jsonrpc version and method required")
		return
	}
	handler, mutating := s.route(req.Method)
	if handler == nil {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
		return
	}
	if mutating {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
	}
	handler(w, &req)
}

func (s *Server) route(method string) (handlerFunc, bool) {
	switch method {
	case "market_listItem":
		return s.handleListItem, true
	case "market_buyItem":
		return s.handleBuyItem, true
	case "market_cancelListing":
		return s.handleCancelListing, true
	case "market_listItemOnAuction":
		return s.handleListItemOnAuction, true
	case "market_makeBid":
		return s.handleMakeBid, true
	case "market_finishAuction":
		return s.handleFinishAuction, true
	case "market_cancelAuction":
		return s.handleCancelAuction, true
	case "market_getAuctionPrice":
		return s.handleGetAuctionPrice, false
	case "market_getListing":
		return s.handleGetListing, false
	case "market_getAuction":
		return s.handleGetAuction, false
	case "assets_mint":
		return s.handleAssetMint, true
	case "assets_ownerOf":
		return s.handleAssetOwnerOf, false
	case "token_mint":
		return s.handleTokenMint, true
	case "token_approve":
		return s.handleTokenApprove, true
	case "token_balanceOf":
		return s.handleTokenBalanceOf, false
	}
	return nil, false
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "bearer token required"}
	}
	if strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")) != s.authToken {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func (s *Server) writeEngineError(w http.ResponseWriter, req *RPCRequest, err error) {
	s.metrics.RPCErrors.WithLabelValues(req.Method).Inc()
	switch {
	case errors.Is(err, market.ErrNotOwner):
		writeError(w, http.StatusForbidden, req.ID, codeMarketForbidden, "forbidden", err.Error())
	case errors.Is(err, registry.ErrMinterRequired), errors.Is(err, token.ErrAdminRequired):
		writeError(w, http.StatusForbidden, req.ID, codeMarketForbidden, "forbidden", err.Error())
	case errors.Is(err, market.ErrNotSelling), errors.Is(err, market.ErrAuctionNotActive), errors.Is(err, registry.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", err.Error())
	case errors.Is(err, market.ErrAlreadyListed), errors.Is(err, market.ErrAuctionOver),
		errors.Is(err, market.ErrAuctionNotOver), errors.Is(err, market.ErrAuctionAlreadyFinished):
		writeError(w, http.StatusConflict, req.ID, codeMarketConflict, "conflict", err.Error())
	case errors.Is(err, market.ErrInsufficientFunds), errors.Is(err, market.ErrInsufficientBid),
		errors.Is(err, token.ErrInsufficientBalance), errors.Is(err, token.ErrInsufficientAllowance):
		writeError(w, http.StatusPaymentRequired, req.ID, codeMarketFunds, "insufficient_funds", err.Error())
	default:
		s.log.Error("rpc handler failed", slog.String("method", req.Method), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "server_error", err.Error())
	}
}

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "invalid_params", Data: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid_params", Data: err.Error()}
	}
	return nil
}

func writeResult(w http.ResponseWriter, id int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status, id, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}
