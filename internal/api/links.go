package api

import "github.com/joeblew999/plat-pestmap/internal/humastar"

// Links returns the RFC 8288 Link headers served with each operation.
// Enables restish hypermedia navigation via `restish links <url>`.
func Links() humastar.Links {
	l := humastar.Links{}
	for _, c := range []struct{ path, rel string }{
		{"/api/v1/info", "info"},
		{"/api/v1/regions", "regions"},
		{"/api/v1/legend", "legend"},
		{"/api/v1/predictions", "predictions"},
		{"/api/v1/render", "render"},
		{"/api/v1/query", "search"},
		{"/api/v1/snapshots", "snapshots"},
		{"/api/v1/events", "events"},
	} {
		l.Add("/health", c.path, c.rel)
	}
	l.Add("/health", "/openapi.json", "service-desc")
	l.Add("/health", "/docs", "service-doc")

	l.Add("/api/v1/predictions", "/api/v1/predictions/simulate", "simulate")
	l.Add("/api/v1/predictions", "/api/v1/snapshots", "snapshots")
	l.Add("/api/v1/predictions", "/api/v1/render", "render")
	l.Add("/api/v1/snapshots", "/api/v1/predictions", "predictions")
	l.Add("/api/v1/snapshots/{id}/install", "/api/v1/snapshots", "collection")
	l.Add("/api/v1/query", "/api/v1/legend", "legend")
	l.Add("/api/v1/tiles/{z}/{x}/{y}", "/api/v1/legend", "legend")
	return l
}
