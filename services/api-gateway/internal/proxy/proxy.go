// Package proxy forwards the /notifications websocket endpoint to the
// notification service. httputil.ReverseProxy handles the Upgrade
// handshake pass-through since Go 1.12.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/taskhive/task-platform/shared/logging"
)

// NewNotificationProxy proxies websocket upgrades to target, a plain
// http(s) URL of the notification service.
func NewNotificationProxy(target string, logger *logging.Logger) (http.Handler, error) {
	upstream, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	p := httputil.NewSingleHostReverseProxy(upstream)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WithError(err).Warn("notification proxy failed")
		http.Error(w, "notification service unavailable", http.StatusBadGateway)
	}
	return p, nil
}
