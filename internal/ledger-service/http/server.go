package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/pool-ledger/internal/ledger"
	"github.com/radieske/pool-ledger/internal/ledger-service/cache"
	"github.com/radieske/pool-ledger/internal/ledger-service/engine"
	"github.com/radieske/pool-ledger/internal/ledger-service/producer"
)

const (
	maxBodyBytes   = 1 << 20
	publishTimeout = 2 * time.Second
)

// Server expõe o engine por REST. Cache, publisher, limiter e WS são opcionais.
type Server struct {
	log     *zap.Logger
	eng     *engine.Engine
	cache   *cache.PoolCache
	publ    producer.Publisher
	limiter *rate.Limiter
	ws      http.HandlerFunc
}

type Options struct {
	Cache     *cache.PoolCache
	Publisher producer.Publisher
	Limiter   *rate.Limiter
	WS        http.HandlerFunc
}

func NewServer(log *zap.Logger, eng *engine.Engine, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	publ := opts.Publisher
	if publ == nil {
		publ = producer.Nop{}
	}
	return &Server{
		log:     log,
		eng:     eng,
		cache:   opts.Cache,
		publ:    publ,
		limiter: opts.Limiter,
		ws:      opts.WS,
	}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Route("/v1/users", func(r chi.Router) {
		r.Post("/", s.registerUser)
		r.Get("/{id}", s.getUser)
		r.Get("/{id}/bets", s.getUserBets)
		r.Get("/{id}/ledger", s.getUserLedger)
	})
	r.Route("/v1/pools", func(r chi.Router) {
		r.Post("/", s.createPool)
		r.Get("/", s.listPools)
		r.Get("/{id}", s.getPool)
		r.Get("/{id}/bets", s.getPoolBets)
		r.Post("/{id}/stakes", s.placeStake)
		r.Post("/{id}/resolve", s.resolvePool)
	})
	if s.ws != nil {
		r.Get("/ws", s.ws)
	}
	return r
}

// rateLimit aplica o token bucket global; excedente recebe 429
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errBody("RateLimited", "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf mapeia o tipo de erro do livro para o status HTTP
func statusOf(k ledger.Kind) int {
	switch k {
	case ledger.KindInvalidArgument:
		return http.StatusBadRequest
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ledger.KindMarketClosed, ledger.KindConflictingSide, ledger.KindAlreadyResolved, ledger.KindAlreadyExists:
		return http.StatusConflict
	case ledger.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.KindOf(err)
	status := statusOf(kind)
	msg := err.Error()
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		msg = lerr.Message()
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		if kind == ledger.KindUnknown {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errBody(kind.String(), msg))
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ledger.E(ledger.KindInvalidArgument, "decode", "bad json: "+err.Error())
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ledger.E(ledger.KindInvalidArgument, "query", key+" must be a non-negative integer")
	}
	return n, nil
}

// publishCtx desacopla o publish do cancelamento da requisição
func publishCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
}
