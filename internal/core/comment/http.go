// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package comment provides the HTTP delivery layer for comment threads.

# Endpoints

  - POST /comments/{location...} posts as the resolved caller (anonymous allowed).
  - GET /comments/{location...} pages, or lists an id range when from/to/order is given.
  - GET /live/{location...} upgrades to a WebSocket that streams new comments as JSON.
*/
package comment

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/murmur/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/murmur/internal/platform/request"
	"github.com/taibuivan/murmur/internal/platform/respond"
	"github.com/taibuivan/murmur/internal/platform/validate"
	"github.com/taibuivan/murmur/pkg/pagination"
)

// Query parameters of the comment listing.
const (
	QueryFrom        = "from"
	QueryTo          = "to"
	QueryOrder       = "order"
	QueryLatestFirst = "latest_first"
)

// liveWriteTimeout bounds a single WebSocket frame write to a slow client.
const liveWriteTimeout = 10 * time.Second

// LiveOptions configures the WebSocket upgrade.
type LiveOptions struct {
	// OriginPatterns lists the hosts allowed to open a live tail cross-origin.
	OriginPatterns []string
	// AnyOrigin disables the origin check (development).
	AnyOrigin bool
}

// Handler implements the HTTP layer for comments.
type Handler struct {
	ledger *Ledger
	live   LiveOptions
}

// NewHandler constructs a new comment [Handler].
func NewHandler(ledger *Ledger, live LiveOptions) *Handler {
	return &Handler{ledger: ledger, live: live}
}

// CommentRoutes returns the REST routes, mounted under /comments.
func (handler *Handler) CommentRoutes() chi.Router {
	router := chi.NewRouter()

	router.Post("/*", handler.postComment)
	router.Get("/*", handler.listComments)

	return router
}

// LiveRoutes returns the WebSocket route, mounted under /live outside any request timeout.
func (handler *Handler) LiveRoutes() chi.Router {
	router := chi.NewRouter()

	router.Get("/*", handler.liveComments)

	return router
}

// postRequest defines the expected JSON payload for a new comment.
type postRequest struct {
	Comment string `json:"comment"`
}

/*
POST /api/v1/comments/{location}.

Request:
  - body: postRequest

Response:
  - 201: Comment: The stored comment with its id
  - 400: ErrInvalidJSON/Validation: Missing location or blank comment
*/
func (handler *Handler) postComment(writer http.ResponseWriter, request *http.Request) {
	var input postRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldComment, input.Comment)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	stored, err := handler.ledger.Post(request.Context(), requestutil.Wildcard(request), requestutil.Identity(request), input.Comment)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, stored)
}

/*
GET /api/v1/comments/{location}.

Query (range mode, when any of from, to, order is present):
  - from: int (inclusive, default 1)
  - to: int (exclusive, default from + page size cap)
  - order: asc | desc (default asc)

Query (page mode):
  - comment_per_page: int (default 30)
  - page: int (default 1)
  - latest_first: bool (default true)

Response:
  - 200: []Comment (range) or []Comment with pagination meta (page)
  - 400: Validation: Malformed numbers or order
*/
func (handler *Handler) listComments(writer http.ResponseWriter, request *http.Request) {
	location := requestutil.Wildcard(request)

	if requestutil.HasQuery(request, QueryFrom, QueryTo, QueryOrder) {
		handler.listRange(writer, request, location)
		return
	}

	params, err := pagination.FromRequest(request)
	if err != nil {
		respond.Error(writer, request, validate.RequiredError(pagination.QueryPage, err.Error()))
		return
	}

	latestFirst, err := requestutil.QueryBool(request, QueryLatestFirst, true)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	comments, meta, err := handler.ledger.Page(request.Context(), location, params, latestFirst)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, comments, meta)
}

func (handler *Handler) listRange(writer http.ResponseWriter, request *http.Request, location string) {
	from, err := requestutil.QueryInt64(request, QueryFrom, 1)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	to, err := requestutil.QueryInt64(request, QueryTo, math.MaxInt64)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	from, to = pagination.ClampSpan(from, to)

	order := Ascending
	if raw := request.URL.Query().Get(QueryOrder); raw != "" {
		order = Order(raw)
	}

	comments, err := handler.ledger.List(request.Context(), location, from, to, order)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, comments)
}

/*
GET /api/v1/live/{location}.

Upgrades to a WebSocket and writes one JSON comment per message until the
client goes away. Client frames are ignored.
*/
func (handler *Handler) liveComments(writer http.ResponseWriter, request *http.Request) {
	location := requestutil.Wildcard(request)
	logger := ctxutil.GetLogger(request.Context())

	// Subscribe before the handshake so nothing posted after it is missed
	subscription, err := handler.ledger.Subscribe(request.Context(), location)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer subscription.Close()

	// The tail outlives the server's write timeout
	_ = http.NewResponseController(writer).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(writer, request, &websocket.AcceptOptions{
		OriginPatterns:     handler.live.OriginPatterns,
		InsecureSkipVerify: handler.live.AnyOrigin,
	})
	if err != nil {
		logger.WarnContext(request.Context(), "live_accept_failed", slog.Any("error", err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(request.Context())
	logger.DebugContext(ctx, "live_subscribed", slog.String("location", location))

	for {
		next, err := subscription.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrSubscriptionClosed) {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			logger.WarnContext(ctx, "live_feed_failed", slog.Any("error", err))
			conn.Close(websocket.StatusInternalError, "feed failure")
			return
		}

		writeCtx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
		err = wsjson.Write(writeCtx, conn, next)
		cancel()
		if err != nil {
			logger.DebugContext(ctx, "live_write_failed", slog.Any("error", err))
			return
		}
	}
}
