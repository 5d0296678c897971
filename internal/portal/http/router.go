package http

import (
	"context"
	"net/http"
	"time"

	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
	commonhttp "github.com/AlibekovAA/givematch-portal/internal/common/http"
	"github.com/AlibekovAA/givematch-portal/internal/common/jwtverify"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/notify"
	"github.com/AlibekovAA/givematch-portal/internal/portal/service"
	"github.com/AlibekovAA/givematch-portal/internal/realtime"
	"github.com/AlibekovAA/givematch-portal/internal/upstream"
)

const (
	notificationsPrefix = "/api/notifications/"
	adminRealtimePrefix = "/api/admin/realtime/"
)

type Portal interface {
	Resource(ctx context.Context, resource string) (service.ResourceResult, error)
	Dashboard(ctx context.Context) (service.Dashboard, error)
}

type Channels interface {
	Lookup(name string) (*realtime.Manager, bool)
	Statuses() []realtime.Status
}

type Notifications interface {
	Active() []notify.Toast
	Dismiss(id string) bool
}

type Config struct {
	JWTSecret      string
	AdminRole      string
	RequestTimeout time.Duration
}

type Handler struct {
	portal        Portal
	channels      Channels
	notifications Notifications
	log           *logger.Logger
}

type realtimeStatusResponse struct {
	Connected bool              `json:"connected"`
	Channels  []realtime.Status `json:"channels"`
}

type notificationsResponse struct {
	Notifications []notify.Toast `json:"notifications"`
}

// NewHandler mounts the authenticated portal API. Requests are limited per
// user by general, and admin routes additionally by admin.
func NewHandler(
	portal Portal,
	channels Channels,
	notifications Notifications,
	cfg Config,
	general, admin *commonhttp.RateLimiter,
	log *logger.Logger,
) http.Handler {
	h := &Handler{
		portal:        portal,
		channels:      channels,
		notifications: notifications,
		log:           log,
	}

	jwtMw := jwtverify.Middleware(cfg.JWTSecret, log)
	adminMw := jwtverify.RequireRole(cfg.AdminRole, log)
	generalLimit := general.Middleware()
	adminLimit := admin.Middleware()
	timeout := commonhttp.WithTimeout(cfg.RequestTimeout)

	protect := func(fn http.HandlerFunc) http.Handler {
		return jwtMw(generalLimit(timeout(fn)))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/dashboard", protect(commonhttp.RequireMethod(http.MethodGet)(h.dashboard)))
	mux.Handle("/api/realtime/status", protect(commonhttp.RequireMethod(http.MethodGet)(h.realtimeStatus)))
	for _, name := range upstream.Resources() {
		mux.Handle("/api/"+name, protect(commonhttp.RequireMethod(http.MethodGet)(h.resource(name))))
	}
	mux.Handle("/api/notifications", protect(commonhttp.RequireMethod(http.MethodGet)(h.listNotifications)))
	mux.Handle(notificationsPrefix, protect(commonhttp.RequireMethod(http.MethodDelete)(h.dismissNotification)))
	mux.Handle(adminRealtimePrefix, jwtMw(adminMw(adminLimit(commonhttp.RequireMethod(http.MethodPost)(h.adminRealtime)))))

	return mux
}

func withUpstreamToken(r *http.Request) context.Context {
	return upstream.ContextWithToken(r.Context(), jwtverify.TokenFromContext(r.Context()))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.portal.Dashboard(withUpstreamToken(r))
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) realtimeStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.channels.Statuses()
	resp := realtimeStatusResponse{Channels: statuses}
	for _, st := range statuses {
		if st.State == realtime.StateConnected {
			resp.Connected = true
			break
		}
	}
	commonhttp.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) resource(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.portal.Resource(withUpstreamToken(r), name)
		if err != nil {
			commonhttp.HandleError(w, r, err, h.log)
			return
		}

		if res.Source != service.SourceUpstream {
			h.log.WithFields(r.Context(), logger.Fields{
				"resource": name,
				"source":   res.Source,
				"action":   "resource_degraded",
			}).Info("resource served from fallback")
		}
		commonhttp.WriteJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	commonhttp.WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: h.notifications.Active()})
}

func (h *Handler) dismissNotification(w http.ResponseWriter, r *http.Request) {
	segments, _ := commonhttp.PathSegments(r.URL.Path, notificationsPrefix)
	if len(segments) != 1 {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidPath, "invalid path", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}
	if !h.notifications.Dismiss(segments[0]) {
		commonhttp.HandleError(w, r, commonerrors.ErrNotificationNotFound, h.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminRealtime(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	segments, _ := commonhttp.PathSegments(r.URL.Path, adminRealtimePrefix)
	if len(segments) != 2 || commonhttp.ValidateName(segments[0]) != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidPath, "invalid path", nil, commonhttp.TraceIDFromContext(ctx))
		return
	}
	channel, action := segments[0], segments[1]

	m, ok := h.channels.Lookup(channel)
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrUnknownChannel, h.log)
		return
	}

	switch action {
	case "connect":
		m.Connect()
	case "disconnect":
		m.Disconnect()
	default:
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeBadRequest, "unknown action", nil, commonhttp.TraceIDFromContext(ctx))
		return
	}

	claims, _ := jwtverify.FromContext(ctx)
	h.log.WithFields(ctx, logger.Fields{
		"channel": channel,
		"user_id": claims.UserID,
		"action":  "admin_realtime_" + action,
	}).Info("admin realtime action")

	commonhttp.WriteJSON(w, http.StatusAccepted, m.Status())
}
