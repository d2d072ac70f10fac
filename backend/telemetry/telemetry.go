// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package telemetry exposes Prometheus counters for the chat service.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesSent counts messages accepted by the send pipeline.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlink_messages_sent_total",
		Help: "Total messages successfully sent.",
	})

	// SendFailures counts sends rejected after validation or storage errors.
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlink_send_failures_total",
		Help: "Total message sends that failed.",
	})

	// UploadsStarted counts attachment uploads attempted.
	UploadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlink_uploads_started_total",
		Help: "Total attachment uploads attempted.",
	})

	// UploadFailures counts attachment uploads that returned an error.
	UploadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatlink_upload_failures_total",
		Help: "Total attachment uploads that failed.",
	})

	// FeedEvents counts change feed events delivered to subscribers,
	// labelled by event kind.
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlink_feed_events_total",
		Help: "Total change feed events delivered.",
	}, []string{"kind"})

	// HTTPRequests counts API requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatlink_http_requests_total",
		Help: "Total HTTP requests served.",
	}, []string{"route", "status"})
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
