// Package http serves the club site: server rendered public pages, the staff
// dashboard, a read-only JSON API and Prometheus metrics.
//
// The router exposes the following endpoints:
//   - GET /, /about, /clubs, /club/{clubID}, /events, /contact: public pages.
//     An unknown club renders the "Club Not Found" page with status 404.
//   - GET /events/stream: Server-Sent Events carrying the events page as
//     {"featured":[...],"all":[...]} after every change to the events collection.
//   - GET /static/*, /clubs/*: files from the static directory. Club logos
//     fall back to /clubs/default.png.
//   - GET/POST /staff/login, POST /staff/logout: staff sign in. The session
//     token travels in the `staff_session` cookie.
//   - GET /staff/dashboard and the /staff/clubs, /staff/events and
//     /staff/featured forms: CSRF protected, form encoded, staff only.
//     Anonymous requests are redirected to /staff/login. Results are shown on
//     the next page through a one-shot flash cookie.
//   - GET /api/clubs, /api/clubs/{clubID}, /api/events, /api/featured: JSON
//     views of the public content, using the DTOs in api_handler.go.
//   - GET /healthz: store reachability. GET /metrics: Prometheus exposition.
package http
