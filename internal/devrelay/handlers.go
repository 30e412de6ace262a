package devrelay

import (
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"smartsession/internal/relay"
)

// Handler returns the relay's HTTP API.
func (r *Relay) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), r.accessLog())
	if r.cfg.APIKey != "" {
		router.Use(r.requireAPIKey())
	}
	r.RegisterRoutes(router.Group(""))
	return router
}

// RegisterRoutes mounts the API on grp.
func (r *Relay) RegisterRoutes(grp *gin.RouterGroup) {
	grp.POST(relay.PathAccount, r.deriveAccount)
	grp.GET(relay.PathCode+":address", r.getCode)
	grp.POST(relay.PathQuote, r.quote)
	grp.POST(relay.PathExecute, r.execute)
	grp.GET(relay.PathExplorer+":hash", r.receipt)
	grp.POST(relay.PathPermissionTyped, r.permissionTypedData)
	grp.POST(relay.PathPermissionGrant, r.grant)
}

func (r *Relay) accessLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		id := ctx.GetHeader(relay.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Header(relay.HeaderRequestID, id)
		ctx.Next()
		r.log.Debug("Relay request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"bytes", ctx.Writer.Size(),
			"id", id,
			"elapsed", time.Since(start),
		)
	}
}

func (r *Relay) requireAPIKey() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader(relay.HeaderAPIKey) != r.cfg.APIKey {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, relay.ErrorResponse{Error: "invalid api key"})
			return
		}
		ctx.Next()
	}
}

// handleErr writes err and reports whether there was one.
func (r *Relay) handleErr(ctx *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errConflict):
		status = http.StatusConflict
	case errors.Is(err, errNotSponsored), errors.Is(err, errSponsorBudgetExceeded):
		status = http.StatusPaymentRequired
	}
	ctx.JSON(status, relay.ErrorResponse{Error: err.Error()})
	return true
}

func (r *Relay) bind(ctx *gin.Context, v any) bool {
	if err := ctx.ShouldBindJSON(v); err != nil {
		ctx.JSON(http.StatusBadRequest, relay.ErrorResponse{Error: "malformed request: " + err.Error()})
		return false
	}
	return true
}

func (r *Relay) deriveAccount(ctx *gin.Context) {
	req := new(relay.AccountRequest)
	if !r.bind(ctx, req) {
		return
	}
	addr, err := r.DeriveAccount(req.Owner)
	if r.handleErr(ctx, err) {
		return
	}
	ctx.JSON(http.StatusOK, relay.AccountResponse{Address: addr})
}

func (r *Relay) getCode(ctx *gin.Context) {
	param := ctx.Param("address")
	if !common.IsHexAddress(param) {
		ctx.JSON(http.StatusBadRequest, relay.ErrorResponse{Error: "invalid address"})
		return
	}
	ctx.JSON(http.StatusOK, relay.CodeResponse{Code: r.Code(common.HexToAddress(param))})
}

func (r *Relay) quote(ctx *gin.Context) {
	req := new(relay.QuoteRequest)
	if !r.bind(ctx, req) {
		return
	}
	q, err := r.Quote(*req)
	if r.handleErr(ctx, err) {
		return
	}
	ctx.JSON(http.StatusOK, q)
}

func (r *Relay) execute(ctx *gin.Context) {
	req := new(relay.ExecuteRequest)
	if !r.bind(ctx, req) {
		return
	}
	if key := ctx.GetHeader(relay.HeaderIdempotencyKey); key != "" && key != req.QuoteID {
		ctx.JSON(http.StatusBadRequest, relay.ErrorResponse{Error: "idempotency key does not match quote"})
		return
	}
	hash, err := r.Execute(req.QuoteID, req.Signature)
	if r.handleErr(ctx, err) {
		return
	}
	ctx.JSON(http.StatusOK, relay.ExecuteResponse{Hash: hash})
}

func (r *Relay) receipt(ctx *gin.Context) {
	rc, err := r.Receipt(common.HexToHash(ctx.Param("hash")))
	if r.handleErr(ctx, err) {
		return
	}
	ctx.JSON(http.StatusOK, rc)
}

func (r *Relay) permissionTypedData(ctx *gin.Context) {
	req := new(relay.TypedDataRequest)
	if !r.bind(ctx, req) {
		return
	}
	td, err := r.PermissionTypedData(*req)
	if r.handleErr(ctx, err) {
		return
	}
	ctx.JSON(http.StatusOK, relay.TypedDataResponse{TypedData: td})
}

func (r *Relay) grant(ctx *gin.Context) {
	req := new(relay.GrantRequest)
	if !r.bind(ctx, req) {
		return
	}
	details, err := r.Grant(*req)
	if r.handleErr(ctx, err) {
		return
	}
	ctx.JSON(http.StatusOK, relay.GrantResponse{SessionDetails: details})
}
