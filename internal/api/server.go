package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"skoll/internal/account"
	"skoll/internal/engine"
)

const shutdownGrace = 5 * time.Second

// Server is the REST surface in front of the matching engine. Handlers run
// on gin's connection goroutines and act as engine producers; the engine
// serializes them at its command queue.
type Server struct {
	address  string
	port     int
	engine   *engine.Engine
	accounts *account.Store
	router   *gin.Engine
}

func New(address string, port int, eng *engine.Engine, accounts *account.Store) *Server {
	s := &Server{
		address:  address,
		port:     port,
		engine:   eng,
		accounts: accounts,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/signup", s.signup)
	router.POST("/signin", s.signin)
	router.GET("/orderbook", s.orderbook)

	authed := router.Group("/", s.authorized)
	authed.GET("/whoami", s.whoami)
	authed.POST("/onramp", s.onramp)
	authed.POST("/orders", s.placeOrder)

	s.router = router
	return s
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.address, s.port),
		Handler: s.router,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// authorized resolves the Bearer token to a user and aborts with 401
// otherwise.
func (s *Server) authorized(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, authResponse{
			Message: "missing authorization token",
		})
		return
	}

	user, err := s.accounts.Lookup(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, authResponse{
			Message: err.Error(),
		})
		return
	}

	c.Set("user", user)
	c.Next()
}

func currentUser(c *gin.Context) *account.User {
	return c.MustGet("user").(*account.User)
}

func (s *Server) signup(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, authResponse{Message: err.Error()})
		return
	}

	switch err := s.accounts.Register(req.Username, req.Password); {
	case errors.Is(err, account.ErrEmptyCredentials):
		c.JSON(http.StatusBadRequest, authResponse{Message: err.Error()})
	case errors.Is(err, account.ErrUserExists):
		c.JSON(http.StatusConflict, authResponse{Message: err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, authResponse{Message: "failed to create user"})
	default:
		c.JSON(http.StatusOK, authResponse{Success: true, Message: "successfully created user"})
	}
}

func (s *Server) signin(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, authResponse{Message: err.Error()})
		return
	}

	token, err := s.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, authResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, authResponse{Success: true, Message: "signed in successfully", Token: token})
}

func (s *Server) whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": currentUser(c).Username})
}

func (s *Server) onramp(c *gin.Context) {
	var req onRampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, onRampResponse{Message: err.Error()})
		return
	}

	balance, err := s.accounts.Deposit(currentUser(c).Username, req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, onRampResponse{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, onRampResponse{
		Success:    true,
		Message:    "deposit credited",
		NewBalance: balance,
	})
}

func (s *Server) placeOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := req.Order(currentUser(c).ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := s.engine.AddOrder(c.Request.Context(), order)
	if err != nil {
		// The producer side of the command queue gave up; the engine may
		// still process the order.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	if response.Status == engine.StatusError {
		c.JSON(http.StatusUnprocessableEntity, newOrderBody(response))
		return
	}
	c.JSON(http.StatusOK, newOrderBody(response))
}

func (s *Server) orderbook(c *gin.Context) {
	snapshot, err := s.engine.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newSnapshotBody(snapshot))
}
